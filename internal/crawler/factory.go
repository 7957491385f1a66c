package crawler

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/scopecrawl/internal/config"
	crawlhttp "github.com/BenjaminSRussell/scopecrawl/internal/http"
	"github.com/BenjaminSRussell/scopecrawl/internal/renderer"
	"github.com/BenjaminSRussell/scopecrawl/internal/scraper"
	"github.com/BenjaminSRussell/scopecrawl/internal/seeding"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
)

// StatsDBName is the name of the statistics database inside the data directory.
const StatsDBName = "stats"

// DefaultProgressInterval is how often crawl progress is logged.
const DefaultProgressInterval = 5 * time.Second

// Config wires the collaborators of a Crawler.
type Config struct {
	// Settings of the crawl.
	Settings types.Config

	// Fetcher downloads pages and robots.txt files.
	Fetcher Fetcher

	// Scraper processes fetched pages.
	Scraper PageScraper

	// Filter admits sitemap-discovered URLs. Optional.
	Filter scraper.LinkFilter

	// Seeder discovers sitemap URLs when Settings.SeedSitemaps is set. Optional.
	Seeder Seeder

	// Log records page outcomes. Optional.
	Log ResultLog

	// A clock instance for politeness delays. If not specified, the
	// default wall-clock will be used instead.
	Clock clock.Clock

	// ProgressInterval between progress log lines.
	ProgressInterval time.Duration

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	s := &cfg.Settings

	if cfg.Fetcher == nil {
		err = multierror.Append(err, fmt.Errorf("fetcher not provided"))
	}

	if cfg.Scraper == nil {
		err = multierror.Append(err, fmt.Errorf("scraper not provided"))
	}

	if len(s.SeedURLs) == 0 {
		err = multierror.Append(err, fmt.Errorf("at least one seed URL is required"))
	}

	if s.Workers <= 0 || s.Workers > 1000 {
		err = multierror.Append(err, fmt.Errorf("workers must be between 1 and 1000, got %d", s.Workers))
	}

	if s.Timeout < 0 {
		err = multierror.Append(err, fmt.Errorf("timeout must not be negative, got %v", s.Timeout))
	}

	if s.HostDelay < 0 {
		err = multierror.Append(err, fmt.Errorf("host delay must not be negative, got %v", s.HostDelay))
	}

	if s.MaxPages < 0 {
		err = multierror.Append(err, fmt.Errorf("max pages must not be negative, got %d", s.MaxPages))
	}

	if s.MaxRetries < 0 || s.MaxRetries > 10 {
		err = multierror.Append(err, fmt.Errorf("max retries must be between 0 and 10, got %d", s.MaxRetries))
	}

	if s.UserAgent == "" {
		s.UserAgent = crawlhttp.DefaultUserAgent
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

// Pipeline is a crawler together with the resources NewFromConfig opened for it.
type Pipeline struct {
	*Crawler

	// Store holds the crawl statistics.
	Store storage.Store

	closers []func() error
}

// Close releases every resource of the crawl.
func (p *Pipeline) Close() error {
	var err error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if cerr := p.closers[i](); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	return err
}

// NewFromConfig builds a crawler and its whole pipeline from the crawl
// settings and the configuration file: the SQLite statistics store in
// settings.DataDir, the admission filter, the scraper, the HTTP fetcher
// (with headless Chrome when enabled), sitemap seeding and the page log.
func NewFromConfig(settings types.Config, file *config.File, logger *logrus.Entry) (*Pipeline, error) {
	if file == nil {
		file = config.Default()
	}
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	if settings.DataDir == "" {
		settings.DataDir = config.DataDir()
	}

	if err := os.MkdirAll(settings.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	p := &Pipeline{}
	fail := func(err error) (*Pipeline, error) {
		_ = p.Close()
		return nil, err
	}

	store, err := storage.OpenSQLite(settings.DataDir, StatsDBName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	p.Store = store
	p.closers = append(p.closers, store.Close)

	filter, err := urlfilter.New(file.Scope, logger.WithField("component", "urlfilter"))
	if err != nil {
		return fail(err)
	}

	scr, err := scraper.New(scraper.Config{
		Store:     store,
		Filter:    filter,
		Stopwords: file.StopwordSet(),
		Bounds:    file.Quality,
		Logger:    logger.WithField("component", "scraper"),
	})
	if err != nil {
		return fail(err)
	}

	retry := crawlhttp.DefaultRetryConfig()
	retry.MaxRetries = settings.MaxRetries
	plain := crawlhttp.NewFetcher(crawlhttp.FetcherConfig{
		Timeout:     settings.Timeout,
		UserAgent:   settings.UserAgent,
		MaxBodySize: settings.MaxBodySize,
		Retry:       retry,
		Logger:      logger.WithField("component", "fetcher"),
	})
	settings.UserAgent = plain.UserAgent()

	var fetcher Fetcher = plain
	if settings.EnableJSRendering {
		chrome := renderer.NewChromeRenderer(settings.UserAgent, settings.Timeout)
		p.closers = append(p.closers, func() error { chrome.Close(); return nil })
		fetcher = renderer.NewHybrid(plain, chrome, logger.WithField("component", "renderer"))
	}

	pageLog, err := storage.NewCrawlLog(settings.DataDir)
	if err != nil {
		return fail(err)
	}
	p.closers = append(p.closers, pageLog.Close)

	if err := pageLog.SaveConfig(settings); err != nil {
		return fail(err)
	}

	c, err := New(Config{
		Settings: settings,
		Fetcher:  fetcher,
		Scraper:  scr,
		Filter:   filter,
		Seeder:   seeding.NewSitemapDiscoverer(plain, logger.WithField("component", "seeding")),
		Log:      pageLog,
		Logger:   logger.WithField("component", "crawler"),
	})
	if err != nil {
		return fail(err)
	}
	p.Crawler = c

	return p, nil
}
