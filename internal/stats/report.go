package stats

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/words"
)

// DefaultTopWords is the number of common words included in a report.
const DefaultTopWords = 50

// SubdomainCount is the number of accepted pages on one host.
type SubdomainCount struct {
	Host  string `json:"host"`
	Pages int    `json:"pages"`
}

// Report summarizes the statistics of a crawl.
type Report struct {
	UniquePages int                 `json:"unique_pages"`
	LongestPage LongestPage         `json:"longest_page"`
	TopWords    []words.RankedToken `json:"top_words"`
	Subdomains  []SubdomainCount    `json:"subdomains"`
	Pages       []string            `json:"-"`
}

// Summarize builds a report from sess with at most top common words.
// Pages whose URL does not parse are counted but not attributed to a host.
func Summarize(sess storage.Session, top int) (*Report, error) {
	keys, err := sess.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	report := &Report{
		Pages:      make([]string, 0, len(keys)),
		TopWords:   []words.RankedToken{},
		Subdomains: []SubdomainCount{},
	}

	hosts := make(map[string]int)
	for _, key := range keys {
		if !IsPageKey(key) {
			continue
		}
		report.Pages = append(report.Pages, key)

		u, err := url.Parse(key)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts[strings.ToLower(u.Hostname())]++
	}
	report.UniquePages = len(report.Pages)

	for host, n := range hosts {
		report.Subdomains = append(report.Subdomains, SubdomainCount{Host: host, Pages: n})
	}
	sort.Slice(report.Subdomains, func(i, j int) bool {
		return report.Subdomains[i].Host < report.Subdomains[j].Host
	})

	var ps PageStats
	if _, err := sess.Get(StatsKey, &ps); err != nil {
		return nil, fmt.Errorf("failed to read page stats: %w", err)
	}
	report.LongestPage = ps.LongestPage

	var dict words.Frequencies
	if _, err := sess.Get(TokenDictKey, &dict); err != nil {
		return nil, fmt.Errorf("failed to read token dictionary: %w", err)
	}
	report.TopWords = words.Top(dict, top)

	return report, nil
}

// Load opens store read-only and summarizes it.
func Load(store storage.Store, top int) (*Report, error) {
	var report *Report
	err := storage.View(store, func(sess storage.Session) error {
		var err error
		report, err = Summarize(sess, top)
		return err
	})
	return report, err
}
