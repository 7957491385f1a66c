// Package cli implements the scopecrawl command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/scopecrawl/internal/config"
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "A focused crawler that keeps only in-scope, content-rich pages",
		Long: `scopecrawl crawls a set of allowed domains, rejects thin, noindex and
out-of-scope pages, and records word and subdomain statistics for the pages
it keeps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default: ./"+config.DefaultConfigFile+" or the XDG config directory)")
	cmd.PersistentFlags().String("data-dir", "", "Data storage directory (default: the XDG data directory)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug/info/warn/error")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewExportCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the logger for cmd from the --log-level flag.
func newLogger(cmd *cobra.Command, out io.Writer) (*logrus.Entry, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logrus.NewEntry(logger).WithField("app", config.AppName), nil
}

// loadConfig resolves the configuration file named by --config.
func loadConfig(cmd *cobra.Command) (*config.File, error) {
	path, _ := cmd.Flags().GetString("config")
	file, err := config.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return file, nil
}

// dataDir picks the data directory: --data-dir, then the configuration file,
// then the XDG data directory.
func dataDir(cmd *cobra.Command, file *config.File) string {
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		return dir
	}
	if file != nil && file.Crawl.DataDir != "" {
		return file.Crawl.DataDir
	}
	return config.DataDir()
}
