// internal/scraper/session.go
package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/internal/extract"
	"github.com/pricewatch-la/pricewatch/internal/sitemap"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// RetryPolicy controls per-URL retry behavior within a domain session.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is multiplied by the retry ordinal before each re-attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the configured production defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 2 * time.Second}
}

// DomainSession walks one domain's task list sequentially through a single
// browser session. URLs within a domain are never fetched concurrently;
// parallelism happens across domains.
type DomainSession struct {
	session    browser.Session
	classifier *Classifier
	extractor  *extract.Extractor
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// NewDomainSession wraps an open browser session with the per-domain
// politeness and retry machinery. requestDelay is the minimum spacing
// between page loads; the first load is not delayed.
func NewDomainSession(
	session browser.Session,
	classifier *Classifier,
	extractor *extract.Extractor,
	requestDelay time.Duration,
	retry RetryPolicy,
	logger *zap.Logger,
) *DomainSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &DomainSession{
		session:    session,
		classifier: classifier,
		extractor:  extractor,
		limiter:    rate.NewLimiter(limit, 1),
		retry:      retry,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Process resolves one task to exactly one ProductRecord. Deny-listed URLs
// short-circuit without a fetch; fetch failures retry with linear backoff;
// a non-product verdict is final and never retried. The returned error is
// non-nil only for terminal failures; verdicts and extractions return nil.
func (d *DomainSession) Process(ctx context.Context, task types.ExtractionTask) (types.ProductRecord, error) {
	if sitemap.IsNonProductURL(task.URL) {
		d.logger.Debug("url deny-listed", zap.String("url", task.URL))
		return extract.NewNonProductRecord(task, "url matches non-product section", d.now()), nil
	}

	var lastErr error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			task.Retries = attempt
			backoff := d.retry.BaseDelay * time.Duration(attempt)
			d.logger.Warn("retrying fetch",
				zap.String("url", task.URL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			if err := d.sleep(ctx, backoff); err != nil {
				return extract.NewRecordFromError(task, err, d.now()), err
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return extract.NewRecordFromError(task, err, d.now()), err
		}

		page, err := d.session.Fetch(ctx, task.URL)
		if err != nil {
			lastErr = err
			continue
		}

		verdict := d.classifier.Classify(page, task)
		if !verdict.Product {
			d.logger.Debug("page rejected by classifier",
				zap.String("url", task.URL),
				zap.Int("score", verdict.Score),
			)
			return extract.NewNonProductRecord(task, "not a product page", d.now()), nil
		}

		record := d.extractor.Extract(page, task)
		d.logger.Info("product extracted",
			zap.String("url", task.URL),
			zap.String("name", record.Name),
			zap.String("stock", string(record.Stock)),
		)
		return record, nil
	}

	return extract.NewRecordFromError(task, lastErr, d.now()), lastErr
}

// Close releases the underlying browser session.
func (d *DomainSession) Close() error {
	return d.session.Close()
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
