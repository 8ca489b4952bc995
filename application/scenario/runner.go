package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrScenariosFailed is returned when at least one scenario failed on its last attempt
var ErrScenariosFailed = errors.New("scenarios failed")

// TraceMode decides which attempts record and keep a playwright trace
type TraceMode string

const (
	TraceOff             TraceMode = "off"
	TraceOn              TraceMode = "on"
	TraceOnFirstRetry    TraceMode = "on-first-retry"
	TraceRetainOnFailure TraceMode = "retain-on-failure"
)

// ParseTraceMode validates a trace mode name
func ParseTraceMode(s string) (TraceMode, error) {
	switch m := TraceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", TraceOff:
		return TraceOff, nil
	case TraceOn, TraceOnFirstRetry, TraceRetainOnFailure:
		return m, nil
	}
	return "", fmt.Errorf("unknown trace mode %q (want off, on, on-first-retry or retain-on-failure)", s)
}

func (m TraceMode) record(attempt int) bool {
	switch m {
	case TraceOn, TraceRetainOnFailure:
		return true
	case TraceOnFirstRetry:
		return attempt == 2
	}
	return false
}

func (m TraceMode) keep(attempt int, passed bool) bool {
	switch m {
	case TraceOn:
		return true
	case TraceOnFirstRetry:
		return attempt == 2
	case TraceRetainOnFailure:
		return !passed
	}
	return false
}

// RunnerConfig mirrors the test-runner settings
type RunnerConfig struct {
	Workers   int
	Retries   int
	Trace     TraceMode
	OutputDir string
	// BaseURL and UserAgent apply to scenarios that do not set their own
	BaseURL   string
	UserAgent string
}

// Runner runs independent scenarios on a bounded worker pool, each attempt on a
// fresh session.
type Runner struct {
	sessions interfaces.SessionFactory
	driver   *Driver
	reporter interfaces.Reporter
	logger   *logrus.Logger
	cfg      RunnerConfig
}

// NewRunner - creates new scenario runner
func NewRunner(sessions interfaces.SessionFactory, driver *Driver, reporter interfaces.Reporter, logger *logrus.Logger, cfg RunnerConfig) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Trace == "" {
		cfg.Trace = TraceOff
	}
	return &Runner{
		sessions: sessions,
		driver:   driver,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run returns the final result of every scenario in input order. The error wraps
// ErrScenariosFailed when any of them failed.
func (r *Runner) Run(ctx context.Context, scenarios []entities.Scenario) ([]entities.ScenarioResult, error) {
	results := make([]entities.ScenarioResult, len(scenarios))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = r.runScenario(ctx, sc)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, res := range results {
		if !res.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrScenariosFailed, failed, len(scenarios))
	}
	return results, nil
}

func (r *Runner) runScenario(ctx context.Context, sc entities.Scenario) entities.ScenarioResult {
	var result entities.ScenarioResult
	for attempt := 1; attempt <= r.cfg.Retries+1; attempt++ {
		if attempt > 1 {
			r.logger.WithFields(logrus.Fields{
				"scenario": sc.Name,
				"attempt":  attempt,
			}).Warn("retrying scenario")
		}

		result = r.runAttempt(ctx, sc, attempt)
		r.reporter.ScenarioFinished(result)
		if result.Passed() || ctx.Err() != nil {
			break
		}
	}
	return result
}

func (r *Runner) runAttempt(ctx context.Context, sc entities.Scenario, attempt int) entities.ScenarioResult {
	opts := interfaces.SessionOptions{
		BaseURL:   sc.BaseURL,
		UserAgent: sc.UserAgent,
		Trace:     r.cfg.Trace.record(attempt),
	}
	if opts.BaseURL == "" {
		opts.BaseURL = r.cfg.BaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = r.cfg.UserAgent
	}

	session, err := r.sessions.NewSession(ctx, opts)
	if err != nil {
		return entities.ScenarioResult{
			Scenario:  sc.Name,
			Status:    entities.StatusFailed,
			Attempt:   attempt,
			Error:     fmt.Sprintf("failed to open browser session: %v", err),
			StartedAt: time.Now(),
		}
	}

	result := r.driver.Run(ctx, sc, session.Page(), attempt)

	var tracePath string
	if opts.Trace && r.cfg.Trace.keep(attempt, result.Passed()) {
		tracePath = r.tracePath(sc.Name, attempt)
	}
	if err := session.Close(tracePath); err != nil {
		r.logger.WithError(err).WithField("scenario", sc.Name).Warn("failed to close session")
		tracePath = ""
	}
	result.TracePath = tracePath
	return result
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (r *Runner) tracePath(name string, attempt int) string {
	dir := filepath.Join(r.cfg.OutputDir, "traces")
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.logger.WithError(err).Warn("failed to create trace directory")
		return ""
	}
	slug := strings.Trim(unsafeChars.ReplaceAllString(name, "-"), "-")
	return filepath.Join(dir, fmt.Sprintf("%s-attempt%d.zip", slug, attempt))
}
