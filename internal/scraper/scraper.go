// Package scraper turns one fetched page into crawl statistics and the list
// of in-scope links worth crawling next.
package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/scopecrawl/internal/parser"
	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
	"github.com/BenjaminSRussell/scopecrawl/internal/words"
)

// Default quality bounds on the number of unique tokens of a page.
const (
	DefaultMinUniqueTokens = 100
	DefaultMaxUniqueTokens = 1000
)

// ErrStore wraps every failure of the statistics store.
var ErrStore = errors.New("statistics store failure")

// LinkFilter decides whether a normalized URL should be crawled.
type LinkFilter interface {
	Allow(rawURL string) (bool, error)
}

// Bounds rejects pages whose unique-token count falls outside [Min, Max].
type Bounds struct {
	MinUniqueTokens int `yaml:"min_unique_tokens"`
	MaxUniqueTokens int `yaml:"max_unique_tokens"`
}

// DefaultBounds returns the 100/1000 bounds.
func DefaultBounds() Bounds {
	return Bounds{
		MinUniqueTokens: DefaultMinUniqueTokens,
		MaxUniqueTokens: DefaultMaxUniqueTokens,
	}
}

// Allow reports whether unique lies within the bounds.
func (b Bounds) Allow(unique int) bool {
	return unique >= b.MinUniqueTokens && unique <= b.MaxUniqueTokens
}

// Config wires the collaborators of a Scraper.
type Config struct {
	// Store receives the statistics of accepted pages.
	Store storage.Store

	// Filter admits harvested links.
	Filter LinkFilter

	// Stopwords never enter the aggregate token dictionary.
	Stopwords words.StopwordSet

	// Bounds on unique tokens. Zero value means DefaultBounds.
	Bounds Bounds

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Store == nil {
		err = multierror.Append(err, fmt.Errorf("statistics store not provided"))
	}

	if cfg.Filter == nil {
		err = multierror.Append(err, fmt.Errorf("link filter not provided"))
	}

	if cfg.Bounds == (Bounds{}) {
		cfg.Bounds = DefaultBounds()
	}

	if cfg.Bounds.MinUniqueTokens < 0 || cfg.Bounds.MaxUniqueTokens < cfg.Bounds.MinUniqueTokens {
		err = multierror.Append(err, fmt.Errorf("invalid unique token bounds [%d, %d]",
			cfg.Bounds.MinUniqueTokens, cfg.Bounds.MaxUniqueTokens))
	}

	if cfg.Stopwords.Len() == 0 {
		cfg.Stopwords = words.EnglishStopwords
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

// Result is the outcome of scraping one page.
type Result struct {
	// State is DONE for accepted pages or the rejection state.
	State State

	// Harvested holds every followable href before normalization and filtering.
	Harvested []string

	// Links holds the normalized, admitted, de-duplicated links.
	Links []string

	// TokenCount and UniqueTokens describe the page text.
	TokenCount   int
	UniqueTokens int
}

// Scraper processes fetched pages. It is safe for concurrent use; the only
// shared state is the store, whose sessions are exclusive.
type Scraper struct {
	cfg Config
}

// New validates cfg and returns a Scraper.
func New(cfg Config) (*Scraper, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("scraper: config validation failed: %w", err)
	}

	return &Scraper{cfg: cfg}, nil
}

// Scrape runs resp through the page pipeline. Rejected pages yield a result
// with no links and leave the store untouched. The returned error is either
// a *urlfilter.MalformedURLError or wraps ErrStore.
func (s *Scraper) Scrape(requestedURL string, resp *types.FetchResult) (*Result, error) {
	logger := s.cfg.Logger.WithField("url", requestedURL)
	res := &Result{State: Received, Harvested: []string{}, Links: []string{}}

	reject := func(state State, fields logrus.Fields) (*Result, error) {
		res.State = state
		logger.WithFields(fields).WithField("state", state.String()).Debug("page rejected")
		return res, nil
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if status < 200 || status > 399 {
		return reject(RejectedStatus, logrus.Fields{"status": status})
	}
	res.State = StatusChecked

	if !resp.HasBody() {
		return reject(RejectedEmpty, nil)
	}
	res.State = BodyChecked

	doc, err := parser.Parse(resp.Body, resp.ContentType)
	if err != nil {
		return reject(RejectedEmpty, logrus.Fields{"err": err})
	}

	if doc.HasMeta("robots", "noindex") {
		return reject(RejectedNoIndex, nil)
	}
	res.State = MetaChecked

	freq := words.Count(words.Tokens(doc.Text()))
	res.TokenCount = freq.Total()
	res.UniqueTokens = freq.Unique()
	if !s.cfg.Bounds.Allow(res.UniqueTokens) {
		return reject(RejectedBounds, logrus.Fields{"unique_tokens": res.UniqueTokens})
	}
	res.State = ContentScored

	for _, a := range doc.Anchors() {
		if !a.HasHref || a.NoFollow || a.Href == "" {
			continue
		}
		res.Harvested = append(res.Harvested, a.Href)
	}
	res.State = LinksHarvested

	err = storage.Update(s.cfg.Store, func(sess storage.Session) error {
		return stats.Record(sess, stats.Page{URL: requestedURL, Frequencies: freq}, s.cfg.Stopwords)
	})
	if err != nil {
		logger.WithError(err).Error("failed to persist page statistics")
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	res.State = StatsPersisted

	links, err := s.admit(resp, requestedURL, res.Harvested)
	if err != nil {
		return nil, err
	}
	res.Links = links
	res.State = Done

	logger.WithFields(logrus.Fields{
		"tokens":    res.TokenCount,
		"unique":    res.UniqueTokens,
		"harvested": len(res.Harvested),
		"admitted":  len(res.Links),
	}).Debug("page processed")

	return res, nil
}

// admit resolves each href against the page URL, strips fragments and keeps
// the links the filter accepts, in order of first appearance.
func (s *Scraper) admit(resp *types.FetchResult, requestedURL string, hrefs []string) ([]string, error) {
	links := make([]string, 0, len(hrefs))
	if len(hrefs) == 0 {
		return links, nil
	}

	baseURL := resp.FinalURL
	if baseURL == "" {
		baseURL = requestedURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		err = &urlfilter.MalformedURLError{URL: baseURL, Err: err}
		s.cfg.Logger.WithField("url", baseURL).WithError(err).Warn("malformed page url")
		return nil, err
	}

	seen := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		link, err := urlfilter.Resolve(base, href)
		if err != nil {
			s.cfg.Logger.WithFields(logrus.Fields{"url": requestedURL, "href": href}).
				WithError(err).Warn("malformed link")
			return nil, err
		}

		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		ok, err := s.cfg.Filter.Allow(link)
		if err != nil {
			return nil, err
		}
		if ok {
			links = append(links, link)
		}
	}

	return links, nil
}
