// internal/browser/chrome.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config configures the Chrome automation layer.
type Config struct {
	Headless      bool
	UserAgent     string
	DisableImages bool
	ExecPath      string

	// NavigationTimeout bounds one page load.
	NavigationTimeout time.Duration

	// SettleDelay waits for dynamic content after the body is ready.
	SettleDelay time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		DisableImages:     true,
		NavigationTimeout: 45 * time.Second,
		SettleDelay:       3 * time.Second,
	}
}

// Session fetches pages within one browser context. Sessions are scoped to a
// single domain: state (cookies, cache) is never shared across domains.
type Session interface {
	Fetch(ctx context.Context, url string) (Page, error)
	Close() error
}

// SessionFactory opens a Session per target domain. The production
// implementation launches Chrome; tests substitute a fixture factory.
type SessionFactory interface {
	NewSession(ctx context.Context, host string) (Session, error)
}

// ChromeFactory launches one headless Chrome context per domain.
type ChromeFactory struct {
	config Config
	logger *zap.Logger
}

// NewChromeFactory builds the production session factory.
func NewChromeFactory(config Config, logger *zap.Logger) *ChromeFactory {
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = DefaultConfig().NavigationTimeout
	}
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeFactory{config: config, logger: logger.Named("browser")}
}

// NewSession launches a fresh browser context for the domain.
func (f *ChromeFactory) NewSession(ctx context.Context, host string) (Session, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if f.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if f.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.config.UserAgent))
	}
	if f.config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if f.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so launch failures surface here, as a
	// domain-level error, instead of on the first URL.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser for %s: %w", host, err)
	}

	f.logger.Debug("browser session opened", zap.String("host", host))

	return &chromeSession{
		ctx:    browserCtx,
		cancel: func() { browserCancel(); allocCancel() },
		config: f.config,
		host:   host,
		logger: f.logger,
	}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	config Config
	host   string
	logger *zap.Logger
}

// Fetch navigates to the URL, waits for the settle period, and snapshots the
// rendered DOM.
func (s *chromeSession) Fetch(ctx context.Context, url string) (Page, error) {
	navCtx, cancel := context.WithTimeout(s.ctx, s.config.NavigationTimeout)
	defer cancel()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if s.config.SettleDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(s.config.SettleDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	start := time.Now()
	if err := chromedp.Run(navCtx, tasks...); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	s.logger.Debug("page fetched",
		zap.String("host", s.host),
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)),
	)

	return NewDOM(html, url)
}

// Close tears down the browser context.
func (s *chromeSession) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}
