package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/scopecrawl/internal/export"
	"github.com/BenjaminSRussell/scopecrawl/internal/stats"
	"github.com/BenjaminSRussell/scopecrawl/internal/storage"
)

// Export formats.
const (
	FormatSitemap = "sitemap"
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatPages   = "pages"
)

var defaultOutput = map[string]string{
	FormatSitemap: "sitemap.xml",
	FormatJSON:    "report.json",
	FormatCSV:     "report.csv",
	FormatPages:   "pages.csv",
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export crawl results",
		Long: `Export the results of a crawl.

Formats:
  sitemap  XML sitemap of the accepted pages
  json     the statistics report as JSON
  csv      the statistics report as CSV
  pages    every page outcome as CSV`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("format", "f", FormatSitemap, "Export format: sitemap/json/csv/pages")
	cmd.Flags().StringP("output", "o", "", "Output file (default depends on the format)")
	cmd.Flags().Int("top", stats.DefaultTopWords, "Number of common words in report exports")
	cmd.Flags().Bool("include-lastmod", true, "Include lastmod in sitemap")
	cmd.Flags().Bool("include-changefreq", true, "Include changefreq in sitemap")
	cmd.Flags().Float64("default-priority", 0.8, "Default priority value")

	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	output, _ := flags.GetString("output")

	name, ok := defaultOutput[format]
	if !ok {
		return fmt.Errorf("unknown export format %q", format)
	}
	if output == "" {
		output = name
	}

	file, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := dataDir(cmd, file)

	exporter, err := export.NewExporter(filepath.Dir(output))
	if err != nil {
		return err
	}
	output = filepath.Base(output)

	switch format {
	case FormatSitemap, FormatPages:
		results, err := storage.LoadResults(dir)
		if err != nil {
			return fmt.Errorf("failed to load page log: %w", err)
		}

		if format == FormatPages {
			if err := exporter.ExportResultsCSV(results, output); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported %d pages to %s\n", len(results), exporter.Path(output))
			return nil
		}

		config := export.DefaultSitemapConfig(output)
		config.IncludeLastmod, _ = flags.GetBool("include-lastmod")
		config.IncludeChangefreq, _ = flags.GetBool("include-changefreq")
		config.DefaultPriority, _ = flags.GetFloat64("default-priority")

		count, err := exporter.ExportSitemap(results, config)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported %d URLs to %s\n", count, exporter.Path(output))

	default:
		top, _ := flags.GetInt("top")
		report, err := loadReport(dir, top)
		if err != nil {
			return err
		}

		if format == FormatJSON {
			err = exporter.ExportJSON(report, output)
		} else {
			err = exporter.ExportReportCSV(report, output)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported report to %s\n", exporter.Path(output))
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
