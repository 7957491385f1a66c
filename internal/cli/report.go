package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/scopecrawl/internal/crawler"
	"github.com/BenjaminSRussell/scopecrawl/internal/export"
	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the statistics of a crawl",
		Long:  `Print the unique page count, the longest page, the most common words and the subdomain counts recorded in the data directory.`,
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}

	cmd.Flags().Int("top", stats.DefaultTopWords, "Number of common words to list")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	file, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	report, err := loadReport(dataDir(cmd, file), top)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return export.WriteReport(cmd.OutOrStdout(), report)
}

// loadReport summarizes the statistics store of an earlier crawl.
func loadReport(dir string, top int) (*stats.Report, error) {
	path := filepath.Join(dir, crawler.StatsDBName+".db")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no crawl statistics in %s: %w", dir, err)
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	report, err := stats.Load(store, top)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	return report, nil
}
