package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/BenjaminSRussell/scopecrawl/internal/config"
	crawlhttp "github.com/BenjaminSRussell/scopecrawl/internal/http"
	"github.com/BenjaminSRussell/scopecrawl/internal/scraper"
	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
)

// content returns a paragraph of n unique tokens.
func content(n int) string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok%d", i)
	}
	return "<p>" + strings.Join(tokens, " ") + "</p>"
}

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	return &types.FetchResult{RequestedURL: rawURL, FinalURL: rawURL, StatusCode: 200, Body: []byte("<html></html>")}, nil
}

type scrapeFunc func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error)

func (f scrapeFunc) Scrape(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
	return f(requestedURL, resp)
}

type memoryLog struct {
	mu      sync.Mutex
	results []types.PageResult
}

func (l *memoryLog) SaveResult(result types.PageResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
	return nil
}

func (l *memoryLog) states() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.results))
	for _, r := range l.results {
		out[r.URL] = r.State
	}
	return out
}

func settings(seeds ...string) types.Config {
	return types.Config{
		SeedURLs:     seeds,
		Workers:      2,
		Timeout:      5 * time.Second,
		IgnoreRobots: true,
	}
}

func TestFrontierDeduplicates(t *testing.T) {
	f := NewFrontier(testclock.NewClock(time.Now()), 0)

	if !f.Add(types.URLItem{URL: "https://www.ics.uci.edu/a"}) {
		t.Error("Expected first add to succeed")
	}
	if f.Add(types.URLItem{URL: "https://www.ics.uci.edu/a"}) {
		t.Error("Expected duplicate add to fail")
	}
	if f.Add(types.URLItem{URL: "not-a-url"}) {
		t.Error("Expected url without host to be refused")
	}
	if f.Size() != 1 || f.Discovered() != 1 {
		t.Errorf("Expected 1 pending and 1 discovered, got %d and %d", f.Size(), f.Discovered())
	}
}

func TestFrontierPoliteness(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	f := NewFrontier(clk, time.Second)

	f.Add(types.URLItem{URL: "https://www.ics.uci.edu/1"})
	f.Add(types.URLItem{URL: "https://www.ics.uci.edu/2"})
	f.Add(types.URLItem{URL: "https://www.stat.uci.edu/1"})

	first, _, ok1 := f.Next()
	second, _, ok2 := f.Next()
	if !ok1 || !ok2 {
		t.Fatal("Expected one URL from each host")
	}
	if hostOf(first.URL) == hostOf(second.URL) {
		t.Errorf("Expected round-robin across hosts, got %s then %s", first.URL, second.URL)
	}

	_, wait, ok := f.Next()
	if ok {
		t.Fatal("Expected host to be cooling down")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("Expected wait in (0, 1s], got %v", wait)
	}

	clk.Advance(time.Second)
	item, _, ok := f.Next()
	if !ok || item.URL != "https://www.ics.uci.edu/2" {
		t.Errorf("Expected second ics url after delay, got %v %v", item.URL, ok)
	}
	if !f.IsEmpty() {
		t.Error("Expected empty frontier")
	}
}

func TestFrontierSetHostDelay(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	f := NewFrontier(clk, time.Second)

	f.SetHostDelay("WWW.ICS.UCI.EDU", 10*time.Second)
	f.SetHostDelay("www.ics.uci.edu", time.Millisecond)
	f.Add(types.URLItem{URL: "https://www.ics.uci.edu/1"})
	f.Add(types.URLItem{URL: "https://www.ics.uci.edu/2"})

	if _, _, ok := f.Next(); !ok {
		t.Fatal("Expected first url")
	}
	clk.Advance(5 * time.Second)
	if _, wait, ok := f.Next(); ok || wait != 5*time.Second {
		t.Errorf("Expected 5s wait for crawl-delay host, got %v %v", wait, ok)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Settings: types.Config{Workers: 0, MaxRetries: 20}})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"fetcher", "scraper", "seed", "workers", "retries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}
}

func TestCrawl(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		case "/":
			fmt.Fprintf(w, `<html><body>%s
				<a href="/a">tok1</a>
				<a href="/a#top">tok2</a>
				<a href="b">tok3</a>
				<a href="/private">tok4</a>
				<a href="/missing">tok5</a>
				<a href="/skip" rel="nofollow">tok6</a>
				<a href="https://example.com/">tok7</a>
				<a href="/paper.pdf">tok8</a>
			</body></html>`, content(200))
		case "/a":
			fmt.Fprintf(w, `<html><body>%s<a href="/">tok1</a></body></html>`, content(150))
		case "/b":
			fmt.Fprintf(w, `<html><body>%s</body></html>`, content(50))
		case "/private":
			fmt.Fprintf(w, `<html><body>%s</body></html>`, content(200))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	rules := urlfilter.DefaultRules()
	rules.Domains = []string{"127.0.0.1"}
	filter, err := urlfilter.New(rules, nil)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}

	store := storage.NewMemoryStore()
	scr, err := scraper.New(scraper.Config{Store: store, Filter: filter})
	if err != nil {
		t.Fatalf("Failed to create scraper: %v", err)
	}

	s := settings(server.URL + "/")
	s.IgnoreRobots = false
	log := &memoryLog{}

	c, err := New(Config{
		Settings: s,
		Fetcher:  crawlhttp.NewFetcher(crawlhttp.FetcherConfig{Timeout: 5 * time.Second}),
		Scraper:  scr,
		Log:      log,
	})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if results.Processed != 2 {
		t.Errorf("Expected 2 processed pages, got %d", results.Processed)
	}
	if results.Rejected != 3 {
		t.Errorf("Expected 3 rejected pages, got %d", results.Rejected)
	}
	if results.Errors != 0 {
		t.Errorf("Expected no errors, got %d", results.Errors)
	}
	if results.Discovered != 5 {
		t.Errorf("Expected 5 discovered urls, got %d", results.Discovered)
	}

	want := map[string]string{
		server.URL + "/":        "DONE",
		server.URL + "/a":       "DONE",
		server.URL + "/b":       "REJECTED_BOUNDS",
		server.URL + "/private": StateBlockedRobots,
		server.URL + "/missing": "REJECTED_STATUS",
	}
	got := log.states()
	for u, state := range want {
		if got[u] != state {
			t.Errorf("Expected %s to end in %s, got %q", u, state, got[u])
		}
	}

	report, err := stats.Load(store, 10)
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if report.UniquePages != 2 {
		t.Errorf("Expected 2 pages in the store, got %d", report.UniquePages)
	}
	if report.LongestPage.URL != server.URL+"/" {
		t.Errorf("Expected seed to be the longest page, got %s", report.LongestPage.URL)
	}
}

func TestCrawlStopsOnStoreFailure(t *testing.T) {
	scr := scrapeFunc(func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
		return nil, fmt.Errorf("%w: disk full", scraper.ErrStore)
	})

	c, err := New(Config{Settings: settings("https://www.ics.uci.edu/"), Fetcher: staticFetcher{}, Scraper: scr})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if !errors.Is(err, scraper.ErrStore) {
		t.Fatalf("Expected ErrStore, got %v", err)
	}
	if results.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", results.Errors)
	}
}

func TestCrawlContinuesOnMalformedLinks(t *testing.T) {
	scr := scrapeFunc(func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
		if requestedURL == "https://www.ics.uci.edu/" {
			return &scraper.Result{State: scraper.Done, Links: []string{"https://www.ics.uci.edu/next"}}, nil
		}
		return nil, &urlfilter.MalformedURLError{URL: "http://[::1", Err: errors.New("bad host")}
	})

	log := &memoryLog{}
	c, err := New(Config{Settings: settings("https://www.ics.uci.edu/"), Fetcher: staticFetcher{}, Scraper: scr, Log: log})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Expected crawl to continue, got %v", err)
	}
	if results.Processed != 1 || results.Errors != 1 {
		t.Errorf("Expected 1 processed and 1 error, got %+v", results)
	}
	if log.states()["https://www.ics.uci.edu/next"] != StateMalformedURL {
		t.Errorf("Expected malformed state, got %v", log.states())
	}
}

func TestCrawlMaxPages(t *testing.T) {
	scr := scrapeFunc(func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
		links := make([]string, 10)
		for i := range links {
			links[i] = fmt.Sprintf("%s%d/", requestedURL, i)
		}
		return &scraper.Result{State: scraper.Done, Links: links}, nil
	})

	s := settings("https://www.ics.uci.edu/")
	s.MaxPages = 5

	c, err := New(Config{Settings: s, Fetcher: staticFetcher{}, Scraper: scr})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if results.Processed != 5 {
		t.Errorf("Expected 5 processed pages, got %d", results.Processed)
	}
}

func TestCrawlRecoversPanics(t *testing.T) {
	scr := scrapeFunc(func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
		panic("boom")
	})

	log := &memoryLog{}
	c, err := New(Config{Settings: settings("https://www.ics.uci.edu/"), Fetcher: staticFetcher{}, Scraper: scr, Log: log})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Expected panic to be recovered, got %v", err)
	}
	if c.PanicCount() != 1 || results.Errors != 1 {
		t.Errorf("Expected 1 recovered panic, got %d (errors %d)", c.PanicCount(), results.Errors)
	}
	if log.states()["https://www.ics.uci.edu/"] != StatePanic {
		t.Errorf("Expected panic state, got %v", log.states())
	}
}

func TestCrawlCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(Config{Settings: settings("https://www.ics.uci.edu/"), Fetcher: staticFetcher{}, Scraper: scrapeFunc(
		func(requestedURL string, resp *types.FetchResult) (*scraper.Result, error) {
			t.Error("Expected no page to be scraped")
			return nil, nil
		})})
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	if _, err := c.Crawl(ctx); err != nil {
		t.Errorf("Expected cancellation to end the crawl cleanly, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	dataDir := t.TempDir()
	s := settings("https://www.ics.uci.edu/")
	s.DataDir = dataDir

	p, err := NewFromConfig(s, config.Default(), nil)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if p.Crawler == nil || p.Store == nil {
		t.Fatal("Expected crawler and store")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	for _, name := range []string{StatsDBName + ".db", "config.json"} {
		if _, err := os.Stat(filepath.Join(dataDir, name)); err != nil {
			t.Errorf("Expected %s in data dir: %v", name, err)
		}
	}
}

func TestNewFromConfigInvalidSettings(t *testing.T) {
	s := settings()
	s.DataDir = t.TempDir()

	if _, err := NewFromConfig(s, nil, nil); err == nil {
		t.Error("Expected error without seeds")
	}
}
