// internal/scraper/engine.go
package scraper

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/internal/extract"
	"github.com/pricewatch-la/pricewatch/internal/schedule"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Sink receives the results of a completed run. Sink failures are logged and
// do not interrupt delivery to the remaining sinks.
type Sink interface {
	SaveRecords(ctx context.Context, records []types.ProductRecord) error
	SaveLog(ctx context.Context, log types.ScrapeLog) error
}

// Observer receives per-task and per-domain progress events. Used for
// metrics; a nil observer is valid.
type Observer interface {
	TaskProcessed(siteID string, product bool, failed bool)
	DomainFinished(siteID string, status types.ScrapeStatus, elapsed time.Duration)
}

// EngineConfig holds the per-run tunables of the engine.
type EngineConfig struct {
	RequestDelay time.Duration
	Retry        RetryPolicy
}

// Engine runs per-domain extraction batches under the concurrency governor.
// Domains run in parallel up to the governor's bound; URLs inside a domain
// run sequentially in their own DomainSession.
type Engine struct {
	factory    browser.SessionFactory
	classifier *Classifier
	extractor  *extract.Extractor
	governor   *schedule.Governor
	queue      *schedule.Queue
	config     EngineConfig
	sinks      []Sink
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine wires the engine. governor and queue must share the same bound;
// pass the queue built over the governor.
func NewEngine(
	factory browser.SessionFactory,
	classifier *Classifier,
	extractor *extract.Extractor,
	governor *schedule.Governor,
	queue *schedule.Queue,
	config EngineConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Retry.BaseDelay == 0 && config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryPolicy()
	}
	return &Engine{
		factory:    factory,
		classifier: classifier,
		extractor:  extractor,
		governor:   governor,
		queue:      queue,
		config:     config,
		logger:     logger.Named("engine"),
		now:        time.Now,
	}
}

// AddSink registers a result sink. Call before Run.
func (e *Engine) AddSink(sink Sink) {
	e.sinks = append(e.sinks, sink)
}

// SetObserver registers the progress observer. Call before Run.
func (e *Engine) SetObserver(observer Observer) {
	e.observer = observer
}

// RunResult aggregates everything a run produced.
type RunResult struct {
	Records []types.ProductRecord
	Logs    []types.ScrapeLog
}

// Run processes all tasks grouped by domain and delivers the results to the
// registered sinks. Every task yields exactly one record, including tasks in
// batches whose browser never launched.
func (e *Engine) Run(ctx context.Context, tasks []types.ExtractionTask) RunResult {
	batches := groupByHost(tasks)

	var (
		mu     sync.Mutex
		result RunResult
		wg     sync.WaitGroup
	)

	for _, batch := range batches {
		wg.Add(1)
		go func(batch domainBatch) {
			defer wg.Done()

			var (
				records []types.ProductRecord
				log     types.ScrapeLog
				ran     bool
			)
			err := e.queue.Do(ctx, func() error {
				ran = true
				var batchErr error
				records, log, batchErr = e.runDomain(ctx, batch)
				return batchErr
			})
			if !ran {
				// Admission failed: the context is done. Record every task
				// so the one-record-per-task contract still holds.
				records, log = e.failBatch(batch, err)
			}

			mu.Lock()
			result.Records = append(result.Records, records...)
			result.Logs = append(result.Logs, log)
			mu.Unlock()
		}(batch)
	}
	wg.Wait()

	e.deliver(ctx, result)
	return result
}

type domainBatch struct {
	host  string
	tasks []types.ExtractionTask
}

// groupByHost splits tasks into per-domain batches, ordered by host so runs
// are deterministic.
func groupByHost(tasks []types.ExtractionTask) []domainBatch {
	byHost := make(map[string][]types.ExtractionTask)
	for _, task := range tasks {
		host := task.Host()
		byHost[host] = append(byHost[host], task)
	}

	hosts := make([]string, 0, len(byHost))
	for host := range byHost {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	batches := make([]domainBatch, 0, len(hosts))
	for _, host := range hosts {
		batches = append(batches, domainBatch{host: host, tasks: byHost[host]})
	}
	return batches
}

// runDomain processes one domain batch through a fresh browser session. A
// launch failure fails the whole batch and is returned so the admission slot
// is released as an error sample; individual URL outcomes never fail a batch.
func (e *Engine) runDomain(ctx context.Context, batch domainBatch) ([]types.ProductRecord, types.ScrapeLog, error) {
	started := e.now()
	siteID := batch.tasks[0].SiteID

	session, err := e.factory.NewSession(ctx, batch.host)
	if err != nil {
		e.logger.Error("browser launch failed",
			zap.String("host", batch.host),
			zap.Error(err),
		)
		records, log := e.failBatchFrom(batch, err, started)
		return records, log, err
	}

	domain := NewDomainSession(
		session,
		e.classifier,
		e.extractor,
		e.config.RequestDelay,
		e.config.Retry,
		e.logger.Named(batch.host),
	)
	defer func() {
		if err := domain.Close(); err != nil {
			e.logger.Warn("session close failed",
				zap.String("host", batch.host),
				zap.Error(err),
			)
		}
	}()

	records := make([]types.ProductRecord, 0, len(batch.tasks))
	errorCount := 0
	lastErrDetail := ""

	for _, task := range batch.tasks {
		record, taskErr := domain.Process(ctx, task)
		records = append(records, record)

		if taskErr != nil {
			errorCount++
			lastErrDetail = taskErr.Error()
			e.governor.RecordError()
		} else {
			e.governor.RecordSuccess()
		}
		if e.observer != nil {
			e.observer.TaskProcessed(task.SiteID, record.IsProduct(), taskErr != nil)
		}
	}

	log := types.ScrapeLog{
		SiteID:       siteID,
		Status:       types.ScrapeCompleted,
		Processed:    len(batch.tasks),
		ErrorCount:   errorCount,
		ErrorDetails: lastErrDetail,
		StartedAt:    started,
		FinishedAt:   e.now(),
	}

	e.logger.Info("domain batch finished",
		zap.String("host", batch.host),
		zap.String("site", siteID),
		zap.Int("processed", log.Processed),
		zap.Int("errors", log.ErrorCount),
		zap.Duration("elapsed", log.FinishedAt.Sub(log.StartedAt)),
	)
	if e.observer != nil {
		e.observer.DomainFinished(siteID, log.Status, log.FinishedAt.Sub(log.StartedAt))
	}
	return records, log, nil
}

func (e *Engine) failBatch(batch domainBatch, err error) ([]types.ProductRecord, types.ScrapeLog) {
	return e.failBatchFrom(batch, err, e.now())
}

// failBatchFrom marks every task in the batch as failed with the domain-level
// error and produces a failed scrape log. Each task counts as one error
// sample, the same cadence the per-URL path feeds the governor.
func (e *Engine) failBatchFrom(batch domainBatch, err error, started time.Time) ([]types.ProductRecord, types.ScrapeLog) {
	records := make([]types.ProductRecord, 0, len(batch.tasks))
	for _, task := range batch.tasks {
		records = append(records, extract.NewRecordFromError(task, err, e.now()))
		e.governor.RecordError()
		if e.observer != nil {
			e.observer.TaskProcessed(task.SiteID, false, true)
		}
	}

	log := types.ScrapeLog{
		SiteID:       batch.tasks[0].SiteID,
		Status:       types.ScrapeFailed,
		Processed:    len(batch.tasks),
		ErrorCount:   len(batch.tasks),
		ErrorDetails: err.Error(),
		StartedAt:    started,
		FinishedAt:   e.now(),
	}
	if e.observer != nil {
		e.observer.DomainFinished(log.SiteID, log.Status, log.FinishedAt.Sub(log.StartedAt))
	}
	return records, log
}

// deliver hands the run result to every sink. Logs go first so sinks that
// summarize per-site status have it on hand when the records arrive. A
// failing sink is logged and skipped; the remaining sinks still receive the
// result.
func (e *Engine) deliver(ctx context.Context, result RunResult) {
	for _, sink := range e.sinks {
		for _, log := range result.Logs {
			if err := sink.SaveLog(ctx, log); err != nil {
				e.logger.Error("sink rejected scrape log",
					zap.String("site", log.SiteID),
					zap.Error(err),
				)
			}
		}
		if err := sink.SaveRecords(ctx, result.Records); err != nil {
			e.logger.Error("sink rejected records", zap.Error(err))
		}
	}
}
