package crawler

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/juju/clock"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

const (
	// Bloom filter settings for ~1M URLs with 0.1% false positive rate
	bloomFilterSize = 1_000_000
	bloomFilterFP   = 0.001

	// DefaultHostDelay is the minimum time between requests to one host.
	DefaultHostDelay = 500 * time.Millisecond
)

// Frontier manages the URL queue with deduplication and politeness
type Frontier struct {
	mu    sync.Mutex
	clock clock.Clock
	delay time.Duration

	// URL queues by host for politeness
	queues map[string]*hostQueue

	// Bloom filter for fast deduplication
	seen *bloom.BloomFilter

	discovered int
	pending    int

	// Round-robin scheduling
	hosts     []string
	hostIndex int
}

// hostQueue manages URLs for a specific host
type hostQueue struct {
	urls       []types.URLItem
	lastAccess time.Time
	delay      time.Duration
}

// NewFrontier creates a frontier that serves each host at most once per
// delay as measured on clk. A nil clock means the wall clock.
func NewFrontier(clk clock.Clock, delay time.Duration) *Frontier {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Frontier{
		clock:  clk,
		delay:  delay,
		queues: make(map[string]*hostQueue),
		seen:   bloom.NewWithEstimates(bloomFilterSize, bloomFilterFP),
		hosts:  make([]string, 0),
	}
}

// Add adds a URL to the frontier if not seen before
func (f *Frontier) Add(item types.URLItem) bool {
	host := hostOf(item.URL)
	if host == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.TestAndAddString(item.URL) {
		return false
	}
	f.discovered++
	f.pending++

	queue := f.queue(host)
	queue.urls = append(queue.urls, item)
	return true
}

func (f *Frontier) queue(host string) *hostQueue {
	queue, exists := f.queues[host]
	if !exists {
		queue = &hostQueue{
			urls:  make([]types.URLItem, 0),
			delay: f.delay,
		}
		f.queues[host] = queue
		f.hosts = append(f.hosts, host)
	}
	return queue
}

// SetHostDelay raises the politeness delay of host, e.g. to honour a
// robots.txt Crawl-delay. Delays below the frontier default are ignored.
func (f *Frontier) SetHostDelay(host string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	queue := f.queue(strings.ToLower(host))
	if delay > queue.delay {
		queue.delay = delay
	}
}

// Next returns the next URL whose host may be contacted now, visiting hosts
// round-robin. When URLs are pending but every host is still cooling down,
// ok is false and wait is the time until the earliest host is ready.
func (f *Frontier) Next() (item types.URLItem, wait time.Duration, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	wait = -1

	for i := 0; i < len(f.hosts); i++ {
		f.hostIndex = (f.hostIndex + 1) % len(f.hosts)
		queue := f.queues[f.hosts[f.hostIndex]]
		if len(queue.urls) == 0 {
			continue
		}

		if ready := queue.lastAccess.Add(queue.delay); now.Before(ready) {
			if w := ready.Sub(now); wait < 0 || w < wait {
				wait = w
			}
			continue
		}

		item = queue.urls[0]
		queue.urls = queue.urls[1:]
		queue.lastAccess = now
		f.pending--
		return item, 0, true
	}

	if wait < 0 {
		wait = 0
	}
	return types.URLItem{}, wait, false
}

// hostOf returns the lowercased host[:port] of rawURL, or "" when it has none.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Discovered returns how many distinct URLs were ever added.
func (f *Frontier) Discovered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discovered
}

// IsEmpty checks if the frontier has no more URLs
func (f *Frontier) IsEmpty() bool {
	return f.Size() == 0
}

// Size returns the total number of pending URLs
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}
