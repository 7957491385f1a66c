package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

const (
	crawlLogFile = "pages.jsonl"
	configFile   = "config.json"
)

// CrawlLog appends the outcome of every processed page to a JSONL file
type CrawlLog struct {
	dataDir string
	mu      sync.Mutex
	jsonl   *os.File
}

// NewCrawlLog opens (or creates) the crawl log in dataDir
func NewCrawlLog(dataDir string) (*CrawlLog, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	jsonlPath := filepath.Join(dataDir, crawlLogFile)
	file, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}

	return &CrawlLog{
		dataDir: dataDir,
		jsonl:   file,
	}, nil
}

// SaveResult appends a page result
func (l *CrawlLog) SaveResult(result types.PageResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if _, err := l.jsonl.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// SaveConfig saves the crawler configuration next to the log
func (l *CrawlLog) SaveConfig(config types.Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(l.dataDir, configFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Close closes the log file
func (l *CrawlLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonl != nil {
		err := l.jsonl.Close()
		l.jsonl = nil
		return err
	}

	return nil
}

// LoadResults reads every page result logged in dataDir. Lines that do not
// decode are skipped.
func LoadResults(dataDir string) ([]types.PageResult, error) {
	file, err := os.Open(filepath.Join(dataDir, crawlLogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []types.PageResult{}, nil
		}
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	results := make([]types.PageResult, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var result types.PageResult
		if err := json.Unmarshal(line, &result); err == nil {
			results = append(results, result)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL file: %w", err)
	}

	return results, nil
}
