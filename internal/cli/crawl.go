package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/scopecrawl/internal/crawler"
	"github.com/BenjaminSRussell/scopecrawl/internal/export"
	crawlhttp "github.com/BenjaminSRussell/scopecrawl/internal/http"
	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

const (
	defaultWorkers    = 8
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 3
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Start a new crawl",
		Long: `Crawl from the given seed URLs, following only links the scope rules admit.

Seeds may be given as arguments, with --seed, or in the crawl.seeds list of
the configuration file. Flags override the configuration file.

Examples:
  scopecrawl crawl https://www.ics.uci.edu/
  scopecrawl crawl --workers 16 --max-pages 5000 --sitemaps https://www.cs.uci.edu/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringSlice("seed", nil, "Seed URL (repeatable)")
	cmd.Flags().IntP("workers", "w", defaultWorkers, "Number of concurrent workers")
	cmd.Flags().DurationP("timeout", "t", defaultTimeout, "Request timeout")
	cmd.Flags().Duration("host-delay", crawler.DefaultHostDelay, "Minimum delay between requests to the same host")
	cmd.Flags().IntP("max-pages", "p", 0, "Stop after this many pages (0 = no limit)")
	cmd.Flags().Int("max-retries", defaultMaxRetries, "Maximum retry attempts per URL")
	cmd.Flags().String("user-agent", crawlhttp.DefaultUserAgent, "User agent sent with every request")
	cmd.Flags().Bool("ignore-robots", false, "Ignore robots.txt")
	cmd.Flags().Bool("sitemaps", false, "Seed from the sitemaps of every seed host")
	cmd.Flags().Bool("js", false, "Render script-driven pages with headless Chrome")
	cmd.Flags().Int("top", stats.DefaultTopWords, "Number of common words in the final report")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	file, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	settings, err := crawlSettings(cmd, args)
	if err != nil {
		return err
	}
	file.Apply(&settings)
	if err := overrideSettings(cmd, &settings); err != nil {
		return err
	}
	settings.DataDir = dataDir(cmd, file)

	pipeline, err := crawler.NewFromConfig(settings, file, logger)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}
	defer func() {
		if cerr := pipeline.Close(); cerr != nil {
			logger.WithError(cerr).Error("failed to close crawl resources")
		}
	}()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"seeds":    len(settings.SeedURLs),
		"workers":  settings.Workers,
		"data_dir": settings.DataDir,
	}).Info("starting crawl")

	results, err := pipeline.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Crawl completed!\n")
	fmt.Fprintf(out, "Discovered: %d, Processed: %d, Rejected: %d, Errors: %d\n\n",
		results.Discovered, results.Processed, results.Rejected, results.Errors)

	top, _ := cmd.Flags().GetInt("top")
	report, err := stats.Load(pipeline.Store, top)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return export.WriteReport(out, report)
}

// crawlSettings reads the flag defaults and positional seeds.
func crawlSettings(cmd *cobra.Command, args []string) (types.Config, error) {
	flags := cmd.Flags()
	settings := types.Config{SeedURLs: append([]string{}, args...)}

	seeds, err := flags.GetStringSlice("seed")
	if err != nil {
		return settings, err
	}
	settings.SeedURLs = append(settings.SeedURLs, seeds...)

	if settings.Workers, err = flags.GetInt("workers"); err != nil {
		return settings, err
	}
	if settings.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return settings, err
	}
	if settings.HostDelay, err = flags.GetDuration("host-delay"); err != nil {
		return settings, err
	}
	if settings.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return settings, err
	}
	if settings.MaxRetries, err = flags.GetInt("max-retries"); err != nil {
		return settings, err
	}
	if settings.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return settings, err
	}
	if settings.IgnoreRobots, err = flags.GetBool("ignore-robots"); err != nil {
		return settings, err
	}
	if settings.SeedSitemaps, err = flags.GetBool("sitemaps"); err != nil {
		return settings, err
	}
	if settings.EnableJSRendering, err = flags.GetBool("js"); err != nil {
		return settings, err
	}

	return settings, nil
}

// overrideSettings puts back the flags the user set explicitly, so they win
// over the configuration file.
func overrideSettings(cmd *cobra.Command, settings *types.Config) error {
	explicit, err := crawlSettings(cmd, nil)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		settings.Workers = explicit.Workers
	}
	if flags.Changed("timeout") {
		settings.Timeout = explicit.Timeout
	}
	if flags.Changed("host-delay") {
		settings.HostDelay = explicit.HostDelay
	}
	if flags.Changed("max-pages") {
		settings.MaxPages = explicit.MaxPages
	}
	if flags.Changed("max-retries") {
		settings.MaxRetries = explicit.MaxRetries
	}
	if flags.Changed("user-agent") {
		settings.UserAgent = explicit.UserAgent
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
