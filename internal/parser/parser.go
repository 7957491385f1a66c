package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Anchor is a hyperlink found in a document
type Anchor struct {
	Href     string
	HasHref  bool
	NoFollow bool
}

// Document is a parsed HTML page
type Document struct {
	doc *goquery.Document
}

// Parse decodes body using the charset hinted by contentType (or sniffed
// from the content) and parses it as HTML
func Parse(body []byte, contentType string) (*Document, error) {
	data := body
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
		data = decoded
	} else if !utf8.Valid(body) {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Document{doc: doc}, nil
}

// Text returns the visible text of the document. Script, style and noscript
// contents are not part of it.
func (d *Document) Text() string {
	clone := d.doc.Clone()
	clone.Find("script,noscript,style").Remove()
	return clone.Text()
}

// Title returns the trimmed document title
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Anchors returns every <a> element in document order
func (d *Document) Anchors() []Anchor {
	anchors := make([]Anchor, 0)

	d.doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		anchors = append(anchors, Anchor{
			Href:     strings.TrimSpace(href),
			HasHref:  exists,
			NoFollow: hasToken(s.AttrOr("rel", ""), "nofollow"),
		})
	})

	return anchors
}

// HasMeta reports whether a <meta> tag with the given name declares content.
// Names compare case-insensitively; content is matched against each entry of
// its comma-separated list.
func (d *Document) HasMeta(name, content string) bool {
	found := false

	d.doc.Find("meta[name]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), name) {
			return true
		}
		for _, part := range strings.Split(s.AttrOr("content", ""), ",") {
			if strings.EqualFold(strings.TrimSpace(part), content) {
				found = true
				return false
			}
		}
		return true
	})

	return found
}

// hasToken reports whether the space-separated attribute value contains token
func hasToken(value, token string) bool {
	for _, field := range strings.Fields(value) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}
