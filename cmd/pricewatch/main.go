// cmd/pricewatch/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/internal/config"
	"github.com/pricewatch-la/pricewatch/internal/extract"
	"github.com/pricewatch-la/pricewatch/internal/logging"
	"github.com/pricewatch-la/pricewatch/internal/monitoring"
	"github.com/pricewatch-la/pricewatch/internal/output"
	"github.com/pricewatch-la/pricewatch/internal/schedule"
	"github.com/pricewatch-la/pricewatch/internal/scraper"
	"github.com/pricewatch-la/pricewatch/internal/sitemap"
	"github.com/pricewatch-la/pricewatch/internal/store"
	"github.com/pricewatch-la/pricewatch/internal/taxonomy"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		if err := runCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validateCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("pricewatch %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `pricewatch - sitemap-driven product price extraction

Usage:
  pricewatch run -config <file> [-every <duration>]
  pricewatch validate -config <file>
  pricewatch version

Commands:
  run       Execute one extraction pass (or loop with -every)
  validate  Check a configuration file and exit
  version   Print version information
`)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "pricewatch.yaml", "configuration file")
	fs.Parse(args)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("configuration %q is valid: %d site(s)\n", *configPath, len(cfg.Sites))
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "pricewatch.yaml", "configuration file")
	every := fs.Duration("every", 0, "repeat the run on this interval (0 = run once)")
	fs.Parse(args)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	if *every <= 0 {
		app.runOnce(ctx, cfg, logger)
		return nil
	}

	logger.Info("interval mode", zap.Duration("every", *every))
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	app.runOnce(ctx, cfg, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			app.runOnce(ctx, cfg, logger)
		}
	}
}

// app holds the long-lived components shared across interval runs.
type app struct {
	engine   *scraper.Engine
	resolver *sitemap.Resolver
	store    *store.SQLStore
	archiver *output.MongoArchiver
	metrics  *monitoring.Metrics
	server   *monitoring.Server
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	metrics := monitoring.NewMetrics()

	var server *monitoring.Server
	if cfg.Metrics.Enabled {
		server = monitoring.NewServer(cfg.Metrics.Address, metrics, logger)
		server.Start()
	}

	// The SQL store is optional; without store.driver the run still writes
	// the configured output sinks, just without persistence or history.
	var sqlStore *store.SQLStore
	if cfg.Store.Driver != "" {
		var err error
		sqlStore, err = store.Open(cfg.Store.Driver, cfg.Store.DSN, logger)
		if err != nil {
			return nil, err
		}
	}

	closeStore := func() {
		if sqlStore != nil {
			sqlStore.Close()
		}
	}

	resolver, err := sitemap.NewResolver(nil, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	registry := extract.NewRegistry()
	for _, site := range cfg.Sites {
		if site.Selectors == nil {
			continue
		}
		registry.Register(site.Platform, site.ID, selectorSet(site.Selectors))
	}

	governor := schedule.NewGovernor(schedule.GovernorConfig{
		Initial: cfg.Concurrency.Initial,
		Max:     cfg.Concurrency.Max,
		Min:     cfg.Concurrency.Min,
		Window:  cfg.Concurrency.Window,
	}, schedule.NewProcProbe(), logger)
	governor.SetBoundChangeHook(metrics.SetBound)
	metrics.SetBound(governor.Bound())

	factory := browser.NewChromeFactory(browser.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		DisableImages:     cfg.Browser.DisableImages,
		ExecPath:          cfg.Browser.ExecPath,
		NavigationTimeout: cfg.Scrape.NavigationTimeout,
		SettleDelay:       cfg.Scrape.SettleDelay,
	}, logger)

	engine := scraper.NewEngine(
		factory,
		scraper.NewClassifier(),
		extract.New(registry, logger),
		governor,
		schedule.NewQueue(governor),
		scraper.EngineConfig{
			RequestDelay: cfg.Scrape.RequestDelay,
			Retry: scraper.RetryPolicy{
				MaxRetries: cfg.Scrape.MaxRetries,
				BaseDelay:  cfg.Scrape.RetryBaseDelay,
			},
		},
		logger,
	)
	engine.SetObserver(metrics)
	if sqlStore != nil {
		engine.AddSink(store.NewRecorder(sqlStore, taxonomy.New(), logger))
	}

	for _, format := range cfg.Output.Formats {
		switch format {
		case "json":
			engine.AddSink(output.NewJSONWriter(cfg.Output.Dir, logger))
		case "excel":
			engine.AddSink(output.NewExcelWriter(cfg.Output.Dir, logger))
		}
	}

	var archiver *output.MongoArchiver
	if cfg.Archive.Enabled() {
		archiver, err = output.NewMongoArchiver(ctx, cfg.Archive.URI, cfg.Archive.Database, cfg.Archive.Collection, logger)
		if err != nil {
			closeStore()
			return nil, err
		}
		engine.AddSink(archiver)
	}

	return &app{
		engine:   engine,
		resolver: resolver,
		store:    sqlStore,
		archiver: archiver,
		metrics:  metrics,
		server:   server,
	}, nil
}

func (a *app) runOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	started := time.Now()

	// Each run re-discovers the full sitemap; dedupe only applies within
	// the run, so interval runs keep observing every product URL.
	a.resolver.Reset()

	var tasks []types.ExtractionTask
	for _, site := range cfg.Sites {
		entries := a.resolver.Resolve(ctx, sitemap.Descriptor{
			URL:      site.SitemapURL,
			SiteID:   site.ID,
			Platform: site.Platform,
			Kind:     site.SitemapKind,
		})
		for _, entry := range entries {
			tasks = append(tasks, types.ExtractionTask{
				URL:      entry.URL,
				SiteID:   entry.SiteID,
				Platform: entry.Platform,
			})
		}
		logger.Info("sitemap resolved",
			zap.String("site", site.ID),
			zap.Int("urls", len(entries)),
		)
	}

	result := a.engine.Run(ctx, tasks)

	products := 0
	for _, record := range result.Records {
		if record.IsProduct() {
			products++
		}
	}
	logger.Info("run finished",
		zap.Int("tasks", len(tasks)),
		zap.Int("products", products),
		zap.Int("domains", len(result.Logs)),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (a *app) close(logger *zap.Logger) {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.server.Shutdown(shutdownCtx)
		cancel()
	}
	if a.archiver != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.archiver.Close(disconnectCtx); err != nil {
			logger.Warn("archive disconnect failed", zap.Error(err))
		}
		cancel()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
}

// selectorSet converts the YAML selector override block into the registry
// table form.
func selectorSet(sc *config.SelectorConfig) extract.SelectorSet {
	return extract.SelectorSet{
		Title:         sc.Title,
		Image:         sc.Image,
		PricePrimary:  sc.PricePrimary,
		Price:         sc.Price,
		Stock:         sc.Stock,
		Description:   sc.Description,
		SpecTable:     sc.SpecTable,
		SpecList:      sc.SpecList,
		SKU:           sc.SKU,
		Brand:         sc.Brand,
		Presentation:  sc.Presentation,
		StockOverride: sc.StockOverride,
	}
}
