package urlfilter

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// calendarRegex matches YYYY-MM and YYYY-MM-DD dates.
var calendarRegex = regexp.MustCompile(`[0-9]{4}-[0-9]{2}(-[0-9]{2})?`)

// ErrMissingHost is wrapped in a MalformedURLError for http(s) URLs without a host.
var ErrMissingHost = errors.New("missing host")

// Predicate is a single admission rule over a parsed URL.
type Predicate struct {
	Name  string
	Allow func(u *url.URL) bool
}

// Filter decides whether a URL is in scope and worth crawling.
type Filter struct {
	schemes    map[string]struct{}
	scope      *regexp.Regexp
	extensions []string
	queryDeny  []string
	pathDeny   []string
	calendar   bool
	logger     *logrus.Entry
}

// New compiles rules into a Filter. A nil logger discards diagnostics.
func New(rules Rules, logger *logrus.Entry) (*Filter, error) {
	if err := rules.validate(); err != nil {
		return nil, fmt.Errorf("invalid scope rules: %w", err)
	}

	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	f := &Filter{
		schemes:   make(map[string]struct{}, len(rules.Schemes)),
		queryDeny: rules.QueryDeny,
		pathDeny:  rules.PathDeny,
		calendar:  rules.RejectCalendar,
		logger:    logger,
	}

	for _, s := range rules.Schemes {
		f.schemes[strings.ToLower(s)] = struct{}{}
	}

	for _, ext := range rules.Extensions {
		f.extensions = append(f.extensions, "."+strings.ToLower(strings.TrimPrefix(ext, ".")))
	}

	quoted := make([]string, 0, len(rules.Domains))
	for _, d := range rules.Domains {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(strings.Trim(d, "."))))
	}
	scope, err := regexp.Compile(`(?i)^(?:[^.]+\.)*(?:` + strings.Join(quoted, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scope pattern: %w", err)
	}
	f.scope = scope

	return f, nil
}

func (r Rules) validate() error {
	var err error

	if len(r.Schemes) == 0 {
		err = multierror.Append(err, fmt.Errorf("at least one scheme is required"))
	}

	if len(r.Domains) == 0 {
		err = multierror.Append(err, fmt.Errorf("at least one scope domain is required"))
	}

	for _, d := range r.Domains {
		if strings.Trim(d, ". ") == "" {
			err = multierror.Append(err, fmt.Errorf("empty scope domain"))
		}
	}

	return err
}

// Predicates returns the admission rules in evaluation order.
func (f *Filter) Predicates() []Predicate {
	return []Predicate{
		{Name: "scheme", Allow: f.AllowScheme},
		{Name: "extension", Allow: f.AllowExtension},
		{Name: "domain", Allow: f.AllowDomain},
		{Name: "calendar", Allow: f.AllowCalendar},
		{Name: "query", Allow: f.AllowQuery},
		{Name: "path", Allow: f.AllowPath},
	}
}

// Allow reports whether raw passes every admission rule. Unparsable URLs and
// http(s) URLs without a host return a *MalformedURLError instead of false.
func (f *Filter) Allow(raw string) (bool, error) {
	u, err := parse(raw)
	if err != nil {
		f.logger.WithField("url", raw).WithError(err).Warn("malformed url")
		return false, err
	}

	if !f.AllowScheme(u) {
		return false, nil
	}

	if u.Hostname() == "" {
		err := &MalformedURLError{URL: raw, Err: ErrMissingHost}
		f.logger.WithField("url", raw).WithError(err).Warn("malformed url")
		return false, err
	}

	for _, p := range f.Predicates()[1:] {
		if !p.Allow(u) {
			f.logger.WithFields(logrus.Fields{"url": raw, "rule": p.Name}).Debug("url rejected")
			return false, nil
		}
	}

	return true, nil
}

// AllowScheme accepts the configured schemes only.
func (f *Filter) AllowScheme(u *url.URL) bool {
	_, ok := f.schemes[strings.ToLower(u.Scheme)]
	return ok
}

// AllowExtension rejects paths ending in a non-crawlable extension.
func (f *Filter) AllowExtension(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, ext := range f.extensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// AllowDomain accepts hosts inside the crawl scope.
func (f *Filter) AllowDomain(u *url.URL) bool {
	return f.scope.MatchString(u.Hostname())
}

// AllowCalendar rejects calendar-like dates in the path or query.
func (f *Filter) AllowCalendar(u *url.URL) bool {
	if !f.calendar {
		return true
	}
	return !calendarRegex.MatchString(u.Path) && !calendarRegex.MatchString(u.RawQuery)
}

// AllowQuery rejects queries containing a denied substring.
func (f *Filter) AllowQuery(u *url.URL) bool {
	return !containsAny(u.RawQuery, f.queryDeny)
}

// AllowPath rejects paths containing a denied substring.
func (f *Filter) AllowPath(u *url.URL) bool {
	return !containsAny(u.Path, f.pathDeny)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
