// Package config loads the crawl configuration file: the admission rules,
// the page quality bounds, extra stopwords and crawl settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/BenjaminSRussell/scopecrawl/internal/scraper"
	"github.com/BenjaminSRussell/scopecrawl/internal/types"
	"github.com/BenjaminSRussell/scopecrawl/internal/urlfilter"
	"github.com/BenjaminSRussell/scopecrawl/internal/words"
)

// AppName names the XDG directories.
const AppName = "scopecrawl"

// DefaultConfigFile is looked up in the working directory and the XDG config directory.
const DefaultConfigFile = "scopecrawl.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Crawl holds the crawl settings that may also come from flags.
// Zero values leave the flag or default in place.
type Crawl struct {
	Seeds      []string      `yaml:"seeds"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	HostDelay  time.Duration `yaml:"host_delay"`
	MaxPages   int           `yaml:"max_pages"`
	MaxRetries int           `yaml:"max_retries"`
	UserAgent  string        `yaml:"user_agent"`
	DataDir    string        `yaml:"data_dir"`
}

// File is the layout of the configuration file.
type File struct {
	Scope     urlfilter.Rules `yaml:"scope"`
	Quality   scraper.Bounds  `yaml:"quality"`
	Stopwords []string        `yaml:"stopwords"`
	Crawl     Crawl           `yaml:"crawl"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Scope:   urlfilter.DefaultRules(),
		Quality: scraper.DefaultBounds(),
	}
}

// Load reads the YAML file at path over the defaults. Sections missing from
// the file keep their default value. If the file does not exist, it returns
// ErrConfigNotFound.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return f, nil
}

// Find returns the configuration file to use. An explicit path is returned
// as is; otherwise the working directory and then the XDG config directory
// are searched. An empty string means no file was found.
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}

	candidates := []string{DefaultConfigFile, filepath.Join(ConfigDir(), DefaultConfigFile)}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	return ""
}

// Resolve finds and loads the configuration. A missing file is only an
// error when it was requested explicitly.
func Resolve(explicit string) (*File, error) {
	path := Find(explicit)
	if path == "" {
		return Default(), nil
	}

	f, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) && explicit == "" {
		return Default(), nil
	}
	return f, err
}

// DataDir returns the XDG data directory of the crawler.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the XDG config directory of the crawler.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the file and reports every problem found.
func (f *File) Validate() error {
	var err error

	if len(f.Scope.Schemes) == 0 {
		err = multierror.Append(err, fmt.Errorf("scope: at least one scheme is required"))
	}

	if len(f.Scope.Domains) == 0 {
		err = multierror.Append(err, fmt.Errorf("scope: at least one domain is required"))
	}

	if f.Quality.MinUniqueTokens < 0 {
		err = multierror.Append(err, fmt.Errorf("quality: min_unique_tokens must not be negative"))
	}

	if f.Quality.MaxUniqueTokens < f.Quality.MinUniqueTokens {
		err = multierror.Append(err, fmt.Errorf("quality: max_unique_tokens %d is below min_unique_tokens %d",
			f.Quality.MaxUniqueTokens, f.Quality.MinUniqueTokens))
	}

	if f.Crawl.Workers < 0 {
		err = multierror.Append(err, fmt.Errorf("crawl: workers must not be negative"))
	}

	if f.Crawl.MaxPages < 0 {
		err = multierror.Append(err, fmt.Errorf("crawl: max_pages must not be negative"))
	}

	if f.Crawl.HostDelay < 0 || f.Crawl.Timeout < 0 {
		err = multierror.Append(err, fmt.Errorf("crawl: durations must not be negative"))
	}

	for _, seed := range f.Crawl.Seeds {
		if !strings.HasPrefix(seed, "http://") && !strings.HasPrefix(seed, "https://") {
			err = multierror.Append(err, fmt.Errorf("crawl: seed %q must be an http(s) url", seed))
		}
	}

	return err
}

// StopwordSet returns the English stopwords plus the configured extras.
func (f *File) StopwordSet() words.StopwordSet {
	if len(f.Stopwords) == 0 {
		return words.EnglishStopwords
	}
	return words.EnglishStopwords.With(f.Stopwords...)
}

// Apply copies the non-zero crawl settings onto cfg. Seeds from the file
// are appended after seeds already present.
func (f *File) Apply(cfg *types.Config) {
	c := f.Crawl

	cfg.SeedURLs = append(cfg.SeedURLs, c.Seeds...)

	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.HostDelay > 0 {
		cfg.HostDelay = c.HostDelay
	}
	if c.MaxPages > 0 {
		cfg.MaxPages = c.MaxPages
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}
}
