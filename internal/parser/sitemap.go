package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractSitemapURLs extracts the <loc> entries of a sitemap or sitemap index
func ExtractSitemapURLs(content []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil
	}

	urls := make([]string, 0)
	doc.Find("loc").Each(func(i int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			urls = append(urls, loc)
		}
	})

	return urls
}
