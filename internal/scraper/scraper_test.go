package scraper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage/mocks"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
)

const pageURL = "https://www.ics.uci.edu/research/"

// page builds an HTML document with n unique tokens followed by extra body
// markup. Anchor texts in extra should reuse tokens like "tok1".
func page(n int, head, extra string) []byte {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok%d", i)
	}
	return []byte(fmt.Sprintf("<html><head>%s</head><body><p>%s</p>%s</body></html>",
		head, strings.Join(tokens, " "), extra))
}

func ok(body []byte) *types.FetchResult {
	return &types.FetchResult{
		RequestedURL: pageURL,
		FinalURL:     pageURL,
		StatusCode:   200,
		ContentType:  "text/html; charset=utf-8",
		Body:         body,
	}
}

func newScraper(t *testing.T, store storage.Store) *Scraper {
	t.Helper()
	filter, err := urlfilter.New(urlfilter.DefaultRules(), nil)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}
	s, err := New(Config{Store: store, Filter: filter})
	if err != nil {
		t.Fatalf("Failed to create scraper: %v", err)
	}
	return s
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error for missing store and filter")
	}

	filter, _ := urlfilter.New(urlfilter.DefaultRules(), nil)
	_, err := New(Config{
		Store:  storage.NewMemoryStore(),
		Filter: filter,
		Bounds: Bounds{MinUniqueTokens: 10, MaxUniqueTokens: 5},
	})
	if err == nil {
		t.Error("Expected error for inverted bounds")
	}
}

func TestScrapeRejections(t *testing.T) {
	tests := []struct {
		name string
		resp *types.FetchResult
		want State
	}{
		{
			name: "not found",
			resp: &types.FetchResult{RequestedURL: pageURL, StatusCode: 404, Body: page(300, "", "")},
			want: RejectedStatus,
		},
		{
			name: "server error",
			resp: &types.FetchResult{RequestedURL: pageURL, StatusCode: 500},
			want: RejectedStatus,
		},
		{
			name: "no response",
			resp: nil,
			want: RejectedStatus,
		},
		{
			name: "absent body",
			resp: &types.FetchResult{RequestedURL: pageURL, StatusCode: 200},
			want: RejectedEmpty,
		},
		{
			name: "noindex",
			resp: ok(page(300, `<meta name="robots" content="NOFOLLOW, NoIndex">`, `<a href="/a">tok1</a>`)),
			want: RejectedNoIndex,
		},
		{
			name: "too few unique tokens",
			resp: ok(page(50, "", `<a href="/a">tok1</a>`)),
			want: RejectedBounds,
		},
		{
			name: "too many unique tokens",
			resp: ok(page(1001, "", "")),
			want: RejectedBounds,
		},
		{
			name: "empty but present body",
			resp: ok([]byte{}),
			want: RejectedBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			s := newScraper(t, store)

			res, err := s.Scrape(pageURL, tt.resp)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if res.State != tt.want {
				t.Errorf("Expected state %s, got %s", tt.want, res.State)
			}
			if !res.State.Rejected() {
				t.Errorf("Expected %s to be a rejection", res.State)
			}
			if len(res.Links) != 0 {
				t.Errorf("Expected no links, got %v", res.Links)
			}
			if store.Len() != 0 {
				t.Errorf("Expected no store mutation, got %d records", store.Len())
			}
		})
	}
}

func TestScrapeBoundsAreInclusive(t *testing.T) {
	for _, n := range []int{DefaultMinUniqueTokens, DefaultMaxUniqueTokens} {
		s := newScraper(t, storage.NewMemoryStore())
		res, err := s.Scrape(pageURL, ok(page(n, "", "")))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if res.State != Done {
			t.Errorf("Expected %d unique tokens to be accepted, got %s", n, res.State)
		}
	}
}

func TestScrapeSkipsNofollow(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newScraper(t, store)

	body := page(300, "", `<a href="/follow">tok1</a><a href="/skip" rel="external NoFollow">tok2</a>`)
	res, err := s.Scrape(pageURL, ok(body))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.State != Done {
		t.Fatalf("Expected state DONE, got %s", res.State)
	}
	if !reflect.DeepEqual(res.Harvested, []string{"/follow"}) {
		t.Errorf("Expected one harvested link, got %v", res.Harvested)
	}
	if !reflect.DeepEqual(res.Links, []string{"https://www.ics.uci.edu/follow"}) {
		t.Errorf("Unexpected links %v", res.Links)
	}
	if res.UniqueTokens != 300 {
		t.Errorf("Expected 300 unique tokens, got %d", res.UniqueTokens)
	}
}

func TestScrapeLinks(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newScraper(t, store)

	extra := `
		<a href="people.html#bio">tok1</a>
		<a href="people.html">tok1</a>
		<a href="https://vision.ics.uci.edu/">tok2</a>
		<a href="https://www.google.com/">tok3</a>
		<a href="/files/paper.pdf">tok4</a>
		<a href="/events/2024-05-01">tok5</a>
		<a href="mailto:someone@uci.edu">tok6</a>
		<a href="">tok7</a>
		<a>tok8</a>`

	resp := ok(page(300, "", extra))
	resp.FinalURL = "https://www.ics.uci.edu/research/index.html"

	res, err := s.Scrape(pageURL, resp)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{
		"https://www.ics.uci.edu/research/people.html",
		"https://vision.ics.uci.edu/",
	}
	if !reflect.DeepEqual(res.Links, want) {
		t.Errorf("Expected links %v, got %v", want, res.Links)
	}
	if len(res.Harvested) != 7 {
		t.Errorf("Expected 7 harvested hrefs, got %d", len(res.Harvested))
	}
}

func TestScrapePersistsStats(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newScraper(t, store)

	body := []byte(`<html><body><p>` + strings.Repeat("the ", 50) + func() string {
		var b strings.Builder
		for i := 0; i < 120; i++ {
			fmt.Fprintf(&b, "word%d ", i)
		}
		return b.String()
	}() + `</p><script>var hidden = 1;</script></body></html>`)

	if _, err := s.Scrape(pageURL, ok(body)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	report, err := stats.Load(store, 5)
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if report.UniquePages != 1 {
		t.Errorf("Expected 1 page, got %d", report.UniquePages)
	}
	if report.LongestPage.URL != pageURL || report.LongestPage.TokenCount != 170 {
		t.Errorf("Unexpected longest page %+v", report.LongestPage)
	}
	for _, w := range report.TopWords {
		if w.Token == "the" || w.Token == "hidden" {
			t.Errorf("Unexpected token %q in top words", w.Token)
		}
	}
}

func TestScrapeStoreOpenFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Open().Return(nil, errors.New("database is locked"))

	s := newScraper(t, store)
	res, err := s.Scrape(pageURL, ok(page(300, "", `<a href="/a">tok1</a>`)))
	if !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}
}

func TestScrapeStoreCommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sess := mocks.NewMockSession(ctrl)
	sess.EXPECT().Get(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	sess.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	sess.EXPECT().Close().Return(errors.New("disk full"))

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Open().Return(sess, nil)

	s := newScraper(t, store)
	_, err := s.Scrape(pageURL, ok(page(300, "", "")))
	if !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore, got %v", err)
	}
}

func TestScrapeStoreWriteFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sess := mocks.NewMockSession(ctrl)
	sess.EXPECT().Set(pageURL, gomock.Any()).Return(errors.New("constraint failed"))
	sess.EXPECT().Rollback().Return(nil)

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Open().Return(sess, nil)

	s := newScraper(t, store)
	_, err := s.Scrape(pageURL, ok(page(300, "", "")))
	if !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore, got %v", err)
	}
}

func TestScrapeMalformedLink(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newScraper(t, store)

	res, err := s.Scrape(pageURL, ok(page(300, "", `<a href="http://[fe80::1">tok1</a>`)))
	var malformed *urlfilter.MalformedURLError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedURLError, got %v", err)
	}
	if errors.Is(err, ErrStore) {
		t.Error("Expected malformed link to be distinguishable from store failure")
	}
	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}
}

func TestStateString(t *testing.T) {
	if Done.String() != "DONE" || RejectedNoIndex.String() != "REJECTED_NOINDEX" {
		t.Errorf("Unexpected state names %s, %s", Done, RejectedNoIndex)
	}
	if State(99).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN, got %s", State(99))
	}
	if Done.Rejected() || StatsPersisted.Rejected() {
		t.Error("Expected non-terminal states not to be rejections")
	}
}
