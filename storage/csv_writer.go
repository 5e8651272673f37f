package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"

	"place-discovery/models"
)

// SuggestionCSVWriter appends run suggestions to a CSV file.
// It is safe for concurrent use.
type SuggestionCSVWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	encoder *csvutil.Encoder
}

var _ SuggestionWriter = (*SuggestionCSVWriter)(nil)

// NewSuggestionCSVWriter creates (or truncates) the CSV file at path.
// Intermediate directories are created automatically. The header row is
// written with the first batch.
func NewSuggestionCSVWriter(path string) (*SuggestionCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	return &SuggestionCSVWriter{file: f, writer: w, encoder: csvutil.NewEncoder(w)}, nil
}

// WriteSuggestions encodes one row per suggestion.
func (c *SuggestionCSVWriter) WriteSuggestions(suggestions []models.Suggestion) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range suggestions {
		if err := c.encoder.Encode(s); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *SuggestionCSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
