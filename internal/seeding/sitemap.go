// Package seeding discovers extra seed URLs from the sitemaps of the seed hosts.
package seeding

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/BenjaminSRussell/scopecrawl/internal/parser"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// maxSitemaps bounds how many sitemap documents one discovery may fetch.
const maxSitemaps = 50

// Fetcher fetches a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error)
}

// SitemapDiscoverer collects page URLs from sitemap.xml, the common sitemap
// index names and the Sitemap directives of robots.txt.
type SitemapDiscoverer struct {
	fetcher Fetcher
	logger  *logrus.Entry
}

// NewSitemapDiscoverer creates a discoverer. A nil logger discards diagnostics.
func NewSitemapDiscoverer(fetcher Fetcher, logger *logrus.Entry) *SitemapDiscoverer {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &SitemapDiscoverer{fetcher: fetcher, logger: logger}
}

// Discover returns the page URLs listed in the sitemaps of startURL's host,
// without duplicates. Unreachable sitemaps are skipped.
func (d *SitemapDiscoverer) Discover(ctx context.Context, startURL string) ([]string, error) {
	parsedURL, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q: missing host", startURL)
	}
	root := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	queue := []string{
		root + "/sitemap.xml",
		root + "/sitemap_index.xml",
		root + "/sitemap-index.xml",
	}
	queue = append(queue, d.robotsSitemaps(ctx, root)...)

	visited := make(map[string]bool)
	seen := make(map[string]bool)
	urls := make([]string, 0)

	for len(queue) > 0 && len(visited) < maxSitemaps {
		sitemapURL := queue[0]
		queue = queue[1:]
		if visited[sitemapURL] {
			continue
		}
		visited[sitemapURL] = true

		locs, err := d.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			if ctx.Err() != nil {
				return urls, ctx.Err()
			}
			d.logger.WithField("sitemap", sitemapURL).WithError(err).Debug("sitemap skipped")
			continue
		}

		for _, loc := range locs {
			// Nested sitemaps of a sitemap index
			if strings.HasSuffix(strings.ToLower(loc), ".xml") {
				queue = append(queue, loc)
				continue
			}
			if !seen[loc] {
				seen[loc] = true
				urls = append(urls, loc)
			}
		}
	}

	d.logger.WithFields(logrus.Fields{"host": parsedURL.Host, "urls": len(urls)}).Info("sitemap discovery finished")
	return urls, nil
}

func (d *SitemapDiscoverer) robotsSitemaps(ctx context.Context, root string) []string {
	result, err := d.fetcher.Fetch(ctx, root+"/robots.txt")
	if err != nil || result == nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(result.StatusCode, result.Body)
	if err != nil {
		return nil
	}
	return robots.Sitemaps
}

func (d *SitemapDiscoverer) fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	result, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	if result.StatusCode != 200 {
		return nil, fmt.Errorf("sitemap returned status %d", result.StatusCode)
	}

	return parser.ExtractSitemapURLs(result.Body), nil
}
