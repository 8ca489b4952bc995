package entities

import (
	"errors"
	"fmt"
	"time"
)

// Scenario is an ordered list of steps run against one page
type Scenario struct {
	Name      string `json:"name" yaml:"name"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Steps     []Step `json:"steps" yaml:"steps"`
}

// Step groups actions under one report label. When WhenAny is set the step only
// runs if one of the queries resolves.
type Step struct {
	Name    string         `json:"name" yaml:"name"`
	WhenAny []ElementQuery `json:"when_any,omitempty" yaml:"when_any,omitempty"`
	Actions []Action       `json:"actions" yaml:"actions"`
}

// Validate checks the scenario structure before any browser is started
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("scenario %q: step %d has no name", s.Name, i+1)
		}
		for _, q := range step.WhenAny {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("scenario %q: step %q: when_any: %w", s.Name, step.Name, err)
			}
		}
		for j, a := range step.Actions {
			if err := a.Validate(); err != nil {
				return fmt.Errorf("scenario %q: step %q: action %d: %w", s.Name, step.Name, j+1, err)
			}
		}
	}
	return nil
}

// Status of a step, action or scenario
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ActionResult is the outcome of one action
type ActionResult struct {
	Label    string        `json:"label"`
	Status   Status        `json:"status"`
	Context  string        `json:"context,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StepResult is the outcome of one step
type StepResult struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Actions  []ActionResult `json:"actions,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ScenarioResult is the outcome of one scenario attempt
type ScenarioResult struct {
	Scenario  string        `json:"scenario"`
	Status    Status        `json:"status"`
	Attempt   int           `json:"attempt"`
	Steps     []StepResult  `json:"steps"`
	Error     string        `json:"error,omitempty"`
	TracePath string        `json:"trace_path,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Passed reports whether the scenario attempt succeeded
func (r ScenarioResult) Passed() bool {
	return r.Status == StatusPassed
}
