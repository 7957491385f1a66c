package types

import (
	"time"
)

// Config holds crawler configuration
type Config struct {
	SeedURLs     []string      `json:"seed_urls"`
	Workers      int           `json:"workers"`
	Timeout      time.Duration `json:"timeout"`
	DataDir      string        `json:"data_dir"`
	IgnoreRobots bool          `json:"ignore_robots"`
	UserAgent    string        `json:"user_agent"`

	// Politeness
	HostDelay time.Duration `json:"host_delay"`

	// Limits
	MaxPages    int   `json:"max_pages"`
	MaxBodySize int64 `json:"max_body_size"`
	MaxRetries  int   `json:"max_retries"`

	// Advanced features
	SeedSitemaps      bool `json:"seed_sitemaps"`
	EnableJSRendering bool `json:"enable_js_rendering"`
}

// Results contains crawl statistics
type Results struct {
	Discovered int
	Processed  int
	Rejected   int
	Errors     int
}

// URLItem represents a URL in the frontier
type URLItem struct {
	URL       string
	Depth     int
	ParentURL string
}

// FetchResult is what the fetch layer delivers for one URL. Body is nil when
// the server returned no content or the status was outside 200-399.
type FetchResult struct {
	RequestedURL string
	FinalURL     string
	StatusCode   int
	ContentType  string
	Body         []byte
}

// HasBody reports whether a body was delivered
func (r *FetchResult) HasBody() bool {
	return r != nil && r.Body != nil
}

// PageResult records the outcome of processing one page
type PageResult struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url,omitempty"`
	Depth      int       `json:"depth"`
	StatusCode int       `json:"status_code"`
	State      string    `json:"state"`
	LinkCount  int       `json:"link_count"`
	CrawledAt  time.Time `json:"crawled_at"`
	Error      string    `json:"error,omitempty"`
}
