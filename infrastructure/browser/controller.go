package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"roadside_e2e/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// LaunchOptions configure the shared browser process
type LaunchOptions struct {
	// Browser is chromium, firefox or webkit
	Browser  string
	Headless bool
	SlowMo   time.Duration
	// ActionTimeout bounds a single click/fill/select/load wait
	ActionTimeout time.Duration
	Viewport      playwright.Size
}

// Launcher owns the playwright driver and one browser; every session gets its own
// isolated browser context.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *logrus.Logger
	opts    LaunchOptions
}

var _ interfaces.SessionFactory = (*Launcher)(nil)

// NewLauncher starts playwright and launches the configured browser
func NewLauncher(logger *logrus.Logger, opts LaunchOptions) (*Launcher, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = playwright.Size{Width: 1280, Height: 720}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browserType, err := pickBrowserType(pw, opts.Browser)
	if err != nil {
		pw.Stop()
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"browser":  browserType.Name(),
		"headless": opts.Headless,
		"version":  browser.Version(),
	}).Info("browser launched")

	return &Launcher{pw: pw, browser: browser, logger: logger, opts: opts}, nil
}

func pickBrowserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch strings.ToLower(name) {
	case "", "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit", "safari":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("unknown browser %q (want chromium, firefox or webkit)", name)
}

// NewSession opens an isolated browser context with one page
func (l *Launcher) NewSession(ctx context.Context, opts interfaces.SessionOptions) (interfaces.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport:          &l.opts.Viewport,
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if opts.BaseURL != "" {
		contextOptions.BaseURL = playwright.String(opts.BaseURL)
	}
	if opts.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(opts.UserAgent)
	}

	bctx, err := l.browser.NewContext(contextOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(l.opts.ActionTimeout.Milliseconds()))

	if opts.Trace {
		if err := bctx.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		}); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
	}

	pg, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s := &session{
		bctx:    bctx,
		tracing: opts.Trace,
		logger:  l.logger,
		page:    newPage(pg, l.logger, l.opts.ActionTimeout),
	}
	bctx.OnPage(s.page.adopt)
	return s, nil
}

// Close shuts the browser and the playwright driver down
func (l *Launcher) Close() error {
	var closeErr error
	if l.browser != nil {
		if err := l.browser.Close(); err != nil && !isClosedError(err) {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		l.browser = nil
	}
	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to stop playwright: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to stop playwright: %w", err)
			}
		}
		l.pw = nil
	}
	return closeErr
}

type session struct {
	bctx    playwright.BrowserContext
	page    *page
	tracing bool
	logger  *logrus.Logger
	once    sync.Once
}

func (s *session) Page() interfaces.Page {
	return s.page
}

// Close stops tracing (saving it when tracePath is set) and closes the context
func (s *session) Close(tracePath string) error {
	var closeErr error
	s.once.Do(func() {
		if s.tracing {
			var err error
			if tracePath != "" {
				err = s.bctx.Tracing().Stop(tracePath)
			} else {
				err = s.bctx.Tracing().Stop()
			}
			if err != nil && !isClosedError(err) {
				closeErr = fmt.Errorf("failed to stop tracing: %w", err)
			} else if tracePath != "" {
				s.logger.WithField("path", tracePath).Info("trace saved")
			}
		}

		if err := s.bctx.Close(); err != nil && !isClosedError(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close context: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close context: %w", err)
			}
		}
	})
	return closeErr
}
