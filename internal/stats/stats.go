// Package stats maintains crawl-wide statistics inside a storage session:
// one token-frequency record per accepted page, the longest page seen, and
// the aggregate non-stopword token dictionary.
package stats

import (
	"fmt"

	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/words"
)

// Reserved keys of the singleton records. Page records are keyed by URL.
const (
	StatsKey     = "stats"
	TokenDictKey = "tokendict"
)

// LongestPage is the page with the highest raw token count seen so far.
type LongestPage struct {
	TokenCount int    `json:"token_count"`
	URL        string `json:"url"`
}

// PageStats is the singleton stats record.
type PageStats struct {
	LongestPage LongestPage `json:"longest_page"`
}

// Page is one accepted page's contribution.
type Page struct {
	URL         string
	Frequencies words.Frequencies
}

// Record writes page into sess: its per-URL record, the longest page if it
// beats the stored one, and its non-stopword counts merged into the
// aggregate dictionary. The caller owns sess and decides whether to commit.
func Record(sess storage.Session, page Page, stopwords words.StopwordSet) error {
	if err := sess.Set(page.URL, page.Frequencies); err != nil {
		return fmt.Errorf("failed to write page record: %w", err)
	}

	var ps PageStats
	if _, err := sess.Get(StatsKey, &ps); err != nil {
		return fmt.Errorf("failed to read page stats: %w", err)
	}
	if total := page.Frequencies.Total(); total > ps.LongestPage.TokenCount {
		ps.LongestPage = LongestPage{TokenCount: total, URL: page.URL}
		if err := sess.Set(StatsKey, ps); err != nil {
			return fmt.Errorf("failed to write page stats: %w", err)
		}
	}

	dict := make(words.Frequencies)
	if _, err := sess.Get(TokenDictKey, &dict); err != nil {
		return fmt.Errorf("failed to read token dictionary: %w", err)
	}
	if dict == nil {
		dict = make(words.Frequencies)
	}
	dict.Merge(stopwords.Filter(page.Frequencies))
	if err := sess.Set(TokenDictKey, dict); err != nil {
		return fmt.Errorf("failed to write token dictionary: %w", err)
	}

	return nil
}

// IsPageKey reports whether key names a per-URL record.
func IsPageKey(key string) bool {
	return key != StatsKey && key != TokenDictKey
}
