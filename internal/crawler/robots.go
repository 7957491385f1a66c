package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and keeps robots.txt per scheme and host.
type robotsCache struct {
	fetcher   Fetcher
	userAgent string

	// map[string]*robotstxt.RobotsData
	cache sync.Map
}

func newRobotsCache(fetcher Fetcher, userAgent string) *robotsCache {
	return &robotsCache{fetcher: fetcher, userAgent: userAgent}
}

// allowed reports whether rawURL may be crawled and the Crawl-delay of its
// host. An unreachable robots.txt allows everything.
func (rc *robotsCache) allowed(ctx context.Context, rawURL string) (bool, time.Duration) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, 0
	}

	robots := rc.robots(ctx, parsedURL)
	if robots == nil {
		return true, 0
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsedURL.RawQuery != "" {
		path += "?" + parsedURL.RawQuery
	}
	return robots.TestAgent(path, rc.userAgent), robots.FindGroup(rc.userAgent).CrawlDelay
}

func (rc *robotsCache) robots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	if cached, ok := rc.cache.Load(robotsURL); ok {
		return cached.(*robotstxt.RobotsData)
	}

	result, err := rc.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		// Not cached so that a later page retries.
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(result.StatusCode, result.Body)
	if err != nil {
		robots, _ = robotstxt.FromStatusAndBytes(404, nil)
	}

	actual, _ := rc.cache.LoadOrStore(robotsURL, robots)
	return actual.(*robotstxt.RobotsData)
}
