// Package crawler drives the page scraper over a frontier of in-scope URLs
// with per-host politeness and robots.txt checks.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/BenjaminSRussell/scopecrawl/internal/scraper"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
)

// Fetcher fetches a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error)
}

// PageScraper turns a fetched page into outbound links.
type PageScraper interface {
	Scrape(requestedURL string, resp *types.FetchResult) (*scraper.Result, error)
}

// Seeder discovers extra start URLs for a seed.
type Seeder interface {
	Discover(ctx context.Context, startURL string) ([]string, error)
}

// ResultLog records the outcome of every page.
type ResultLog interface {
	SaveResult(result types.PageResult) error
}

// Page outcome states recorded in addition to the scraper states.
const (
	StateBlockedRobots = "BLOCKED_ROBOTS"
	StateFetchError    = "FETCH_ERROR"
	StateMalformedURL  = "MALFORMED_URL"
	StateStoreError    = "STORE_ERROR"
	StatePanic         = "PANIC"
)

// Crawler is the main crawler engine
type Crawler struct {
	cfg      Config
	frontier *Frontier
	robots   *robotsCache
	idle     chan struct{}

	discovered atomic.Int64
	processed  atomic.Int64
	rejected   atomic.Int64
	errors     atomic.Int64
	panics     atomic.Int64
	inFlight   atomic.Int64
}

// New validates cfg and creates a crawler.
func New(cfg Config) (*Crawler, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("crawler: config validation failed: %w", err)
	}

	return &Crawler{
		cfg:      cfg,
		frontier: NewFrontier(cfg.Clock, cfg.Settings.HostDelay),
		robots:   newRobotsCache(cfg.Fetcher, cfg.Settings.UserAgent),
		idle:     make(chan struct{}, 1),
	}, nil
}

// Crawl processes the frontier until it is exhausted, the page limit is
// reached or ctx is canceled. A statistics store failure stops the crawl
// and is returned together with the results so far.
func (c *Crawler) Crawl(ctx context.Context) (*types.Results, error) {
	c.seed(ctx)

	logger := c.cfg.Logger
	logger.WithFields(logrus.Fields{
		"workers":  c.cfg.Settings.Workers,
		"frontier": c.frontier.Size(),
	}).Info("starting crawl")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Settings.Workers)

	progressCtx, stopProgress := context.WithCancel(gctx)
	defer stopProgress()
	go c.reportProgress(progressCtx)

	dispatched := 0
	for gctx.Err() == nil {
		if c.cfg.Settings.MaxPages > 0 && dispatched >= c.cfg.Settings.MaxPages {
			logger.WithField("max_pages", c.cfg.Settings.MaxPages).Info("page limit reached")
			break
		}

		item, wait, ok := c.frontier.Next()
		if !ok {
			if c.frontier.IsEmpty() && c.inFlight.Load() == 0 {
				logger.Info("frontier exhausted")
				break
			}
			c.waitForWork(gctx, wait)
			continue
		}

		dispatched++
		c.inFlight.Add(1)
		g.Go(func() error {
			defer c.done()
			return c.safeProcess(gctx, item)
		})
	}

	err := g.Wait()
	stopProgress()

	results := c.Results()
	logger.WithFields(logrus.Fields{
		"discovered": results.Discovered,
		"processed":  results.Processed,
		"rejected":   results.Rejected,
		"errors":     results.Errors,
	}).Info("crawl finished")

	if err != nil && !errors.Is(err, context.Canceled) {
		return results, err
	}
	return results, nil
}

// Results returns the counters so far.
func (c *Crawler) Results() *types.Results {
	return &types.Results{
		Discovered: int(c.discovered.Load()),
		Processed:  int(c.processed.Load()),
		Rejected:   int(c.rejected.Load()),
		Errors:     int(c.errors.Load()),
	}
}

// Frontier exposes the crawl frontier.
func (c *Crawler) Frontier() *Frontier {
	return c.frontier
}

func (c *Crawler) done() {
	c.inFlight.Add(-1)
	select {
	case c.idle <- struct{}{}:
	default:
	}
}

// waitForWork blocks until a host cools down, a page finishes or ctx ends.
func (c *Crawler) waitForWork(ctx context.Context, wait time.Duration) {
	var timer <-chan time.Time
	if wait > 0 {
		timer = c.cfg.Clock.After(wait)
	} else if c.inFlight.Load() == 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-c.idle:
	case <-timer:
	}
}

// seed adds the configured seeds and, when enabled, their sitemap URLs.
func (c *Crawler) seed(ctx context.Context) {
	for _, raw := range c.cfg.Settings.SeedURLs {
		seed, err := urlfilter.Normalize(raw)
		if err != nil {
			c.cfg.Logger.WithField("url", raw).WithError(err).Warn("skipping malformed seed")
			continue
		}
		if c.frontier.Add(types.URLItem{URL: seed, Depth: 0}) {
			c.discovered.Add(1)
		}
	}

	if !c.cfg.Settings.SeedSitemaps || c.cfg.Seeder == nil {
		return
	}

	for _, seed := range c.cfg.Settings.SeedURLs {
		urls, err := c.cfg.Seeder.Discover(ctx, seed)
		if err != nil {
			c.cfg.Logger.WithField("seed", seed).WithError(err).Warn("sitemap seeding failed")
			continue
		}

		added := 0
		for _, u := range urls {
			if c.cfg.Filter != nil {
				if ok, err := c.cfg.Filter.Allow(u); err != nil || !ok {
					continue
				}
			}
			link, err := urlfilter.Normalize(u)
			if err != nil {
				continue
			}
			if c.frontier.Add(types.URLItem{URL: link, Depth: 0, ParentURL: seed}) {
				c.discovered.Add(1)
				added++
			}
		}
		c.cfg.Logger.WithFields(logrus.Fields{"seed": seed, "added": added}).Info("sitemap seeding finished")
	}
}

// processURL crawls a single URL. Only a store failure is returned.
func (c *Crawler) processURL(ctx context.Context, item types.URLItem) error {
	logger := c.cfg.Logger.WithField("url", item.URL)
	result := types.PageResult{
		URL:       item.URL,
		Depth:     item.Depth,
		CrawledAt: c.cfg.Clock.Now(),
	}

	if !c.cfg.Settings.IgnoreRobots {
		allowed, delay := c.robots.allowed(ctx, item.URL)
		if delay > 0 {
			c.frontier.SetHostDelay(hostOf(item.URL), delay)
		}
		if !allowed {
			result.State = StateBlockedRobots
			c.rejected.Add(1)
			c.save(result)
			return nil
		}
	}

	resp, err := c.cfg.Fetcher.Fetch(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		result.State = StateFetchError
		result.Error = fmt.Sprintf("fetch failed: %v", err)
		logger.WithError(err).Warn("fetch failed")
		c.errors.Add(1)
		c.save(result)
		return nil
	}
	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.FinalURL

	res, err := c.cfg.Scraper.Scrape(item.URL, resp)
	switch {
	case errors.Is(err, scraper.ErrStore):
		result.State = StateStoreError
		result.Error = err.Error()
		c.errors.Add(1)
		c.save(result)
		return err
	case err != nil:
		result.State = StateMalformedURL
		result.Error = err.Error()
		c.errors.Add(1)
		c.save(result)
		return nil
	}

	result.State = res.State.String()
	if res.State.Rejected() {
		c.rejected.Add(1)
		c.save(result)
		return nil
	}

	for _, link := range res.Links {
		if c.frontier.Add(types.URLItem{URL: link, Depth: item.Depth + 1, ParentURL: item.URL}) {
			c.discovered.Add(1)
			result.LinkCount++
		}
	}

	c.processed.Add(1)
	c.save(result)
	return nil
}

func (c *Crawler) save(result types.PageResult) {
	if c.cfg.Log == nil {
		return
	}
	if err := c.cfg.Log.SaveResult(result); err != nil {
		c.cfg.Logger.WithField("url", result.URL).WithError(err).Warn("failed to record page result")
	}
}

// reportProgress logs crawl progress every ProgressInterval.
func (c *Crawler) reportProgress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.cfg.Clock.After(c.cfg.ProgressInterval):
		}

		c.cfg.Logger.WithFields(logrus.Fields{
			"discovered": c.discovered.Load(),
			"processed":  c.processed.Load(),
			"rejected":   c.rejected.Load(),
			"errors":     c.errors.Load(),
			"pending":    c.frontier.Size(),
		}).Info("crawl progress")
	}
}
