package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// AcceptedState is the page state included in sitemaps.
const AcceptedState = "DONE"

// SitemapConfig holds export configuration
type SitemapConfig struct {
	OutputFile        string
	IncludeLastmod    bool
	IncludeChangefreq bool
	DefaultPriority   float64
}

// DefaultSitemapConfig returns the configuration used by the export command.
func DefaultSitemapConfig(outputFile string) SitemapConfig {
	return SitemapConfig{
		OutputFile:        outputFile,
		IncludeLastmod:    true,
		IncludeChangefreq: true,
		DefaultPriority:   0.8,
	}
}

// URLSet represents the XML sitemap structure
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL in the sitemap
type URL struct {
	Loc        string  `xml:"loc"`
	Lastmod    string  `xml:"lastmod,omitempty"`
	Changefreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// ExportSitemap writes the accepted pages of results as an XML sitemap and
// returns how many URLs it contains. A page crawled more than once appears once.
func (e *Exporter) ExportSitemap(results []types.PageResult, config SitemapConfig) (int, error) {
	urlSet := URLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]URL, 0),
	}

	seen := make(map[string]bool)
	for _, result := range results {
		// Only include pages that passed every check
		if result.State != AcceptedState || seen[result.URL] {
			continue
		}
		seen[result.URL] = true

		u := URL{
			Loc:      result.URL,
			Priority: config.DefaultPriority,
		}

		if config.IncludeLastmod && !result.CrawledAt.IsZero() {
			u.Lastmod = result.CrawledAt.Format(time.RFC3339)
		}

		if config.IncludeChangefreq {
			u.Changefreq = "weekly"
		}

		urlSet.URLs = append(urlSet.URLs, u)
	}

	output, err := xml.MarshalIndent(urlSet, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal XML: %w", err)
	}

	xmlContent := []byte(xml.Header + string(output))

	if err := os.WriteFile(e.Path(config.OutputFile), xmlContent, 0644); err != nil {
		return 0, fmt.Errorf("failed to write sitemap: %w", err)
	}

	return len(urlSet.URLs), nil
}
