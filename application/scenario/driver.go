// Package scenario runs ordered enrollment steps against a page and reports every outcome.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roadside_e2e/application/resolver"
	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ActionFailure is a located element whose interaction failed, or an action
// refused by the guard. It is fatal unless the action is optional.
type ActionFailure struct {
	Step   string
	Action entities.Action
	Err    error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("step %q: %s: %v", e.Step, e.Action, e.Err)
}

func (e *ActionFailure) Unwrap() error {
	return e.Err
}

// StepError is a required step that could not complete
type StepError struct {
	Step   string
	Action entities.Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %s: %v", e.Step, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// DriverConfig holds the wait budgets of a scenario run
type DriverConfig struct {
	// Timeout is the wait for required elements
	Timeout time.Duration
	// OptionalTimeout is the wait for elements that may never appear
	OptionalTimeout time.Duration
}

// Driver executes one scenario at a time against a page. It keeps no state
// between runs, so one Driver serves all workers.
type Driver struct {
	resolver *resolver.Resolver
	guard    interfaces.ActionGuard
	reporter interfaces.Reporter
	logger   *logrus.Logger
	cfg      DriverConfig
}

// NewDriver - creates new scenario driver
func NewDriver(r *resolver.Resolver, guard interfaces.ActionGuard, reporter interfaces.Reporter, logger *logrus.Logger, cfg DriverConfig) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.OptionalTimeout <= 0 {
		cfg.OptionalTimeout = 3 * time.Second
	}
	return &Driver{
		resolver: r,
		guard:    guard,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run executes all steps in order and stops at the first failed step
func (d *Driver) Run(ctx context.Context, sc entities.Scenario, page interfaces.Page, attempt int) entities.ScenarioResult {
	result := entities.ScenarioResult{
		Scenario:  sc.Name,
		Status:    entities.StatusPassed,
		Attempt:   attempt,
		StartedAt: time.Now(),
	}
	log := d.logger.WithFields(logrus.Fields{"scenario": sc.Name, "attempt": attempt})
	log.Info("scenario started")

	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			result.Status = entities.StatusFailed
			result.Error = fmt.Sprintf("scenario canceled: %v", err)
			break
		}

		stepResult, err := d.runStep(ctx, sc.Name, step, page)
		result.Steps = append(result.Steps, stepResult)
		d.reporter.StepFinished(sc.Name, stepResult)

		if err != nil {
			result.Status = entities.StatusFailed
			result.Error = err.Error()
			log.WithError(err).Error("scenario failed")
			break
		}
	}

	result.Duration = time.Since(result.StartedAt)
	if result.Passed() {
		log.WithField("duration", result.Duration).Info("scenario passed")
	}
	return result
}

func (d *Driver) runStep(ctx context.Context, scenarioName string, step entities.Step, page interfaces.Page) (entities.StepResult, error) {
	start := time.Now()
	result := entities.StepResult{Name: step.Name, Status: entities.StatusPassed}
	log := d.logger.WithFields(logrus.Fields{"scenario": scenarioName, "step": step.Name})

	if len(step.WhenAny) > 0 {
		found, err := d.resolver.ResolveAny(ctx, page, step.WhenAny, d.cfg.OptionalTimeout)
		switch {
		case errors.Is(err, resolver.ErrNotFound):
			log.Info("step condition not met, skipping")
			result.Status = entities.StatusSkipped
			result.Duration = time.Since(start)
			return result, nil
		case err != nil:
			result.Status = entities.StatusFailed
			result.Error = err.Error()
			result.Duration = time.Since(start)
			return result, fmt.Errorf("step %q: when_any: %w", step.Name, err)
		}
		log.WithFields(logrus.Fields{
			"query":   found.Query.String(),
			"context": found.Context.Name(),
		}).Info("step condition met")
	}

	log.Info("step started")
	for _, action := range step.Actions {
		actionResult, err := d.runAction(ctx, step.Name, action, page)
		result.Actions = append(result.Actions, actionResult)
		d.reporter.ActionFinished(scenarioName, step.Name, actionResult)

		if err != nil {
			result.Status = entities.StatusFailed
			result.Error = err.Error()
			result.Duration = time.Since(start)
			return result, err
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// runAction performs one action. Optional actions never return an error;
// their misses and failures are reported as skipped.
func (d *Driver) runAction(ctx context.Context, stepName string, action entities.Action, page interfaces.Page) (entities.ActionResult, error) {
	start := time.Now()
	result := entities.ActionResult{Label: action.String(), Status: entities.StatusPassed}
	log := d.logger.WithFields(logrus.Fields{"step": stepName, "action": result.Label})

	contextName, skipped, err := d.perform(ctx, stepName, action, page)
	result.Context = contextName
	result.Duration = time.Since(start)

	switch {
	case err == nil && skipped:
		result.Status = entities.StatusSkipped
	case err == nil:
		log.WithField("context", contextName).Debug("action done")
	case action.Optional && !errors.Is(err, entities.ErrInvalidQuery):
		log.WithError(err).Warn("optional action failed, continuing")
		result.Status = entities.StatusSkipped
		result.Error = err.Error()
		err = nil
	default:
		result.Status = entities.StatusFailed
		result.Error = err.Error()
		var failure *ActionFailure
		if !errors.As(err, &failure) {
			err = &StepError{Step: stepName, Action: action, Err: err}
		}
	}
	return result, err
}

func (d *Driver) timeoutFor(action entities.Action) time.Duration {
	if action.TimeoutMs > 0 {
		return time.Duration(action.TimeoutMs) * time.Millisecond
	}
	if action.Optional {
		return d.cfg.OptionalTimeout
	}
	return d.cfg.Timeout
}

// perform returns the name of the context the element was found in and whether
// an optional target was absent
func (d *Driver) perform(ctx context.Context, stepName string, action entities.Action, page interfaces.Page) (string, bool, error) {
	switch action.Type {
	case entities.ActionNavigate:
		return "", false, page.Navigate(ctx, action.Value)

	case entities.ActionWaitLoad:
		state := action.State
		if state == "" {
			state = entities.LoadStateLoad
		}
		return "", false, page.WaitForLoad(ctx, state)

	case entities.ActionExpectURL:
		pattern, err := entities.ParsePattern(action.Value)
		if err != nil {
			return "", false, err
		}
		return "", false, page.ExpectURL(ctx, pattern)
	}

	if action.Type == entities.ActionClick && action.Optional && len(action.Or) == 0 {
		var contextName string
		outcome, err := d.resolver.ClickIfPresent(ctx, page, action.Query, d.timeoutFor(action),
			func(ctx context.Context, found *resolver.Resolved) error {
				contextName = found.Context.Name()
				return d.checkGuard(ctx, action, page, found)
			})
		if err != nil {
			return contextName, false, &ActionFailure{Step: stepName, Action: action, Err: err}
		}
		return contextName, outcome == entities.Skipped, nil
	}

	found, err := d.resolver.ResolveAny(ctx, page, action.Queries(), d.timeoutFor(action))
	if err != nil {
		if action.Optional && errors.Is(err, resolver.ErrNotFound) {
			d.logger.WithFields(logrus.Fields{
				"step":  stepName,
				"query": action.Query.String(),
			}).Info("optional element not present, skipping")
			return "", true, nil
		}
		return "", false, err
	}
	contextName := found.Context.Name()

	var actErr error
	switch action.Type {
	case entities.ActionClick:
		if err := d.checkGuard(ctx, action, page, found); err != nil {
			return contextName, false, &ActionFailure{Step: stepName, Action: action, Err: err}
		}
		actErr = found.Element.Click(ctx)
	case entities.ActionFill:
		actErr = found.Element.Fill(ctx, action.Value)
	case entities.ActionSelect:
		actErr = found.Element.SelectOption(ctx, action.Value)
	case entities.ActionExpectVisible:
	default:
		actErr = fmt.Errorf("unknown action type %q", action.Type)
	}
	if actErr != nil {
		return contextName, false, &ActionFailure{Step: stepName, Action: action, Err: fmt.Errorf("in %s: %w", contextName, actErr)}
	}
	return contextName, false, nil
}

// checkGuard asks the guard about the element that is about to be clicked
func (d *Driver) checkGuard(ctx context.Context, action entities.Action, page interfaces.Page, found *resolver.Resolved) error {
	if d.guard == nil {
		return nil
	}
	target, err := found.Element.Text(ctx)
	if err != nil {
		d.logger.WithError(err).WithField("query", found.Query.String()).Debug("reading element text failed")
	}
	return d.guard.Check(ctx, action, page.URL(), target)
}
