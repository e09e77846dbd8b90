// internal/store/recorder.go
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/internal/taxonomy"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Recorder persists run results into a Store: product upserts, category
// assignments and the price history. A price history row is appended only
// when the observed price differs from the stored one, so re-running over
// unchanged prices is idempotent.
type Recorder struct {
	store    Store
	taxonomy *taxonomy.Classifier
	logger   *zap.Logger
}

// NewRecorder wires a Recorder. A nil classifier disables category
// assignment.
func NewRecorder(store Store, classifier *taxonomy.Classifier, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, taxonomy: classifier, logger: logger.Named("recorder")}
}

// SaveRecords persists every product record. Verdict and failure records are
// skipped; they carry no product state. A failing record is logged and the
// rest still persist.
func (r *Recorder) SaveRecords(ctx context.Context, records []types.ProductRecord) error {
	failed := 0
	for _, record := range records {
		if !record.IsProduct() {
			continue
		}
		if err := r.saveOne(ctx, record); err != nil {
			failed++
			r.logger.Error("failed to persist product",
				zap.String("url", record.URL),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d product record(s) failed to persist", failed)
	}
	return nil
}

func (r *Recorder) saveOne(ctx context.Context, record types.ProductRecord) error {
	existing, err := r.store.FindByKey(ctx, record.SiteID, record.URL)
	if err != nil {
		return err
	}

	if err := r.store.Upsert(ctx, record); err != nil {
		return err
	}

	if record.Price != nil && priceChanged(existing, *record.Price) {
		if err := r.store.AppendPriceHistory(ctx, record.SiteID, record.URL, *record.Price, record.ScrapedAt); err != nil {
			return err
		}
	}

	if r.taxonomy != nil {
		assignments := r.taxonomy.Classify(record)
		if err := r.store.AssignCategories(ctx, record.SiteID, record.URL, assignments); err != nil {
			return err
		}
	}
	return nil
}

// priceChanged reports whether the observed price differs from the stored
// one. A product never seen before, or one without a stored price, counts as
// changed: its first observation starts the history.
func priceChanged(existing *StoredProduct, price float64) bool {
	if existing == nil || existing.CurrentPrice == nil {
		return true
	}
	return *existing.CurrentPrice != price
}

// SaveLog records the domain batch summary.
func (r *Recorder) SaveLog(ctx context.Context, log types.ScrapeLog) error {
	return r.store.AppendScrapeLog(ctx, log)
}
