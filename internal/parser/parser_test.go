package parser

import (
	"strings"
	"testing"
)

func TestParseText(t *testing.T) {
	html := `
	<html>
		<head>
			<title> Test Page </title>
			<style>body { color: red; }</style>
			<script>var hidden = "script";</script>
		</head>
		<body>
			<p>Visible <b>words</b> here</p>
			<noscript>enable javascript</noscript>
		</body>
	</html>
	`

	doc, err := Parse([]byte(html), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if doc.Title() != "Test Page" {
		t.Errorf("Expected title 'Test Page', got %q", doc.Title())
	}

	text := doc.Text()
	for _, want := range []string{"Visible", "words", "here"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected text to contain %q, got %q", want, text)
		}
	}
	for _, unwanted := range []string{"hidden", "color", "enable javascript"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("Expected text not to contain %q, got %q", unwanted, text)
		}
	}

	// Text must not modify the document itself
	if !strings.Contains(doc.doc.Find("script").Text(), "hidden") {
		t.Error("Expected script element to survive Text()")
	}
}

func TestParseLatin1(t *testing.T) {
	body := []byte("<html><body><p>caf\xe9 menu</p></body></html>")

	doc, err := Parse(body, "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if !strings.Contains(doc.Text(), "café") {
		t.Errorf("Expected decoded text, got %q", doc.Text())
	}
}

func TestAnchors(t *testing.T) {
	html := `
	<html>
		<body>
			<a href="https://www.ics.uci.edu/page1">Link 1</a>
			<a href=" /page2 " rel="nofollow">Link 2</a>
			<a rel="noopener NOFOLLOW" href="page3">Link 3</a>
			<a name="anchor-only">No href</a>
			<a href="">Empty</a>
		</body>
	</html>
	`

	doc, err := Parse([]byte(html), "")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	anchors := doc.Anchors()
	want := []Anchor{
		{Href: "https://www.ics.uci.edu/page1", HasHref: true},
		{Href: "/page2", HasHref: true, NoFollow: true},
		{Href: "page3", HasHref: true, NoFollow: true},
		{Href: "", HasHref: false},
		{Href: "", HasHref: true},
	}

	if len(anchors) != len(want) {
		t.Fatalf("Expected %d anchors, got %d", len(want), len(anchors))
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Errorf("Anchor %d: expected %+v, got %+v", i, want[i], anchors[i])
		}
	}
}

func TestHasMeta(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"noindex", `<meta name="robots" content="noindex">`, true},
		{"case insensitive", `<meta name="ROBOTS" content="NoIndex">`, true},
		{"list", `<meta name="robots" content="nofollow, noindex">`, true},
		{"index", `<meta name="robots" content="index, follow">`, false},
		{"other name", `<meta name="description" content="noindex">`, false},
		{"absent", `<title>x</title>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte("<html><head>"+tt.html+"</head></html>"), "")
			if err != nil {
				t.Fatalf("Failed to parse: %v", err)
			}
			if got := doc.HasMeta("robots", "noindex"); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(nil, "")
	if err != nil {
		t.Fatalf("Expected no error for empty HTML, got %v", err)
	}
	if len(doc.Anchors()) != 0 {
		t.Error("Expected no anchors")
	}
	if strings.TrimSpace(doc.Text()) != "" {
		t.Errorf("Expected empty text, got %q", doc.Text())
	}
}

func TestExtractSitemapURLs(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
	<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
		<url><loc> https://www.ics.uci.edu/ </loc></url>
		<url><loc>https://www.ics.uci.edu/about</loc></url>
		<url><loc></loc></url>
	</urlset>`

	urls := ExtractSitemapURLs([]byte(xml))
	if len(urls) != 2 {
		t.Fatalf("Expected 2 urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://www.ics.uci.edu/" {
		t.Errorf("Expected trimmed loc, got %q", urls[0])
	}
}
