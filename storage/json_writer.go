package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"leilao-scraper/models"
)

// JSONWriter writes the final listings of a run to a timestamped JSON file.
// It is safe for concurrent use.
type JSONWriter struct {
	mu  sync.Mutex
	dir string
}

// NewJSONWriter creates a writer rooted at dir. The directory is created
// on first write.
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{dir: dir}
}

// Write stores listings as <category>_YYYYMMDD_HHMMSS.json and returns the
// path. An empty run still produces a file containing [].
func (w *JSONWriter) Write(category string, listings []*models.Listing, at time.Time) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("json: create output dir: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", category, at.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("json: create file %q: %w", path, err)
	}

	if listings == nil {
		listings = []*models.Listing{}
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listings); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("json: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("json: close: %w", err)
	}
	return path, nil
}
