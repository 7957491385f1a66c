// Package export writes crawl reports and page logs to JSON, CSV, text and
// sitemap files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// Exporter writes export files below an output directory.
type Exporter struct {
	outputDir string
}

func NewExporter(outputDir string) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Exporter{
		outputDir: outputDir,
	}, nil
}

// Path resolves name inside the output directory unless it is absolute.
func (e *Exporter) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.outputDir, name)
}

func (e *Exporter) ExportJSON(v any, outputFile string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(e.Path(outputFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// ExportResultsCSV writes one row per page outcome.
func (e *Exporter) ExportResultsCSV(results []types.PageResult, outputFile string) error {
	return e.writeCSV(outputFile, func(writer *csv.Writer) error {
		headers := []string{"URL", "FinalURL", "Depth", "StatusCode", "State", "LinkCount", "CrawledAt", "Error"}
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}

		for _, result := range results {
			record := []string{
				result.URL,
				result.FinalURL,
				strconv.Itoa(result.Depth),
				strconv.Itoa(result.StatusCode),
				result.State,
				strconv.Itoa(result.LinkCount),
				result.CrawledAt.Format(time.RFC3339),
				result.Error,
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

// ExportReportCSV writes the report as section,key,value rows.
func (e *Exporter) ExportReportCSV(report *stats.Report, outputFile string) error {
	return e.writeCSV(outputFile, func(writer *csv.Writer) error {
		rows := [][]string{
			{"section", "key", "value"},
			{"summary", "unique_pages", strconv.Itoa(report.UniquePages)},
			{"longest_page", report.LongestPage.URL, strconv.Itoa(report.LongestPage.TokenCount)},
		}
		for _, w := range report.TopWords {
			rows = append(rows, []string{"word", w.Token, strconv.Itoa(w.Frequency)})
		}
		for _, s := range report.Subdomains {
			rows = append(rows, []string{"subdomain", s.Host, strconv.Itoa(s.Pages)})
		}

		if err := writer.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write CSV records: %w", err)
		}
		return nil
	})
}

func (e *Exporter) writeCSV(outputFile string, write func(*csv.Writer) error) error {
	file, err := os.Create(e.Path(outputFile))
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}

	return file.Close()
}

// WriteReport prints the report in the layout of the crawl summary.
func WriteReport(w io.Writer, report *stats.Report) error {
	p := &errWriter{w: w}

	p.printf("Unique pages: %d\n", report.UniquePages)
	p.printf("Longest page: %s (%d words)\n", report.LongestPage.URL, report.LongestPage.TokenCount)

	p.printf("\n%d most common words:\n", len(report.TopWords))
	for i, word := range report.TopWords {
		p.printf("%3d. %-24s %d\n", i+1, word.Token, word.Frequency)
	}

	p.printf("\nSubdomains (%d):\n", len(report.Subdomains))
	for _, s := range report.Subdomains {
		p.printf("%s, %d\n", s.Host, s.Pages)
	}

	return p.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (p *errWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
