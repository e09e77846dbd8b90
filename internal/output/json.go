// internal/output/json.go

// Package output writes run results to files: per-run JSON arrays (combined
// and per site), an optional Excel report, and an optional MongoDB archive
// of raw records.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// timestampLayout names output files by run start time.
const timestampLayout = "20060102-150405"

// JSONWriter writes one combined JSON array per run plus one array per site.
// File names carry the run timestamp so successive runs never overwrite.
type JSONWriter struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewJSONWriter builds a writer rooted at dir. The directory is created on
// first write.
func NewJSONWriter(dir string, logger *zap.Logger) *JSONWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONWriter{dir: dir, logger: logger.Named("output"), now: time.Now}
}

// SaveRecords writes the combined file and the per-site files for this run.
func (w *JSONWriter) SaveRecords(_ context.Context, records []types.ProductRecord) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}
	stamp := w.now().UTC().Format(timestampLayout)

	combined := filepath.Join(w.dir, fmt.Sprintf("products-%s.json", stamp))
	if err := writeJSONFile(combined, records); err != nil {
		return err
	}
	w.logger.Info("wrote combined output",
		zap.String("file", combined),
		zap.Int("records", len(records)),
	)

	bySite := make(map[string][]types.ProductRecord)
	for _, record := range records {
		bySite[record.SiteID] = append(bySite[record.SiteID], record)
	}
	for siteID, siteRecords := range bySite {
		path := filepath.Join(w.dir, fmt.Sprintf("products-%s-%s.json", siteID, stamp))
		if err := writeJSONFile(path, siteRecords); err != nil {
			return err
		}
	}
	return nil
}

// SaveLog is a no-op; scrape logs live in the store, not in output files.
func (w *JSONWriter) SaveLog(context.Context, types.ScrapeLog) error { return nil }

func writeJSONFile(path string, records []types.ProductRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if records == nil {
		records = []types.ProductRecord{}
	}
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Sync()
}
