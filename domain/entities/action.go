package entities

import (
	"fmt"
	"strings"
)

// ActionType represents a single scenario interaction
type ActionType string

const (
	ActionNavigate      ActionType = "navigate"
	ActionClick         ActionType = "click"
	ActionFill          ActionType = "fill"
	ActionSelect        ActionType = "select"
	ActionExpectVisible ActionType = "expect_visible"
	ActionExpectURL     ActionType = "expect_url"
	ActionWaitLoad      ActionType = "wait_load"
)

// LoadState mirrors the browser load states a wait_load action may target
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// Action is one interaction inside a step
type Action struct {
	Type  ActionType   `json:"type" yaml:"type"`
	Query ElementQuery `json:"query,omitempty" yaml:"query,omitempty"`
	// Or lists fallback queries tried after Query in every context
	Or []ElementQuery `json:"or,omitempty" yaml:"or,omitempty"`
	// Value is the fill text, the option label for select, the URL for navigate
	// or the URL pattern for expect_url.
	Value    string    `json:"value,omitempty" yaml:"value,omitempty"`
	State    LoadState `json:"state,omitempty" yaml:"state,omitempty"`
	Optional bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
	// TimeoutMs overrides the driver's default wait for this action
	TimeoutMs int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// Queries returns Query followed by its fallbacks
func (a Action) Queries() []ElementQuery {
	return append([]ElementQuery{a.Query}, a.Or...)
}

// Targeted reports whether the action resolves an element
func (a Action) Targeted() bool {
	switch a.Type {
	case ActionClick, ActionFill, ActionSelect, ActionExpectVisible:
		return true
	}
	return false
}

// Validate checks the action shape
func (a Action) Validate() error {
	switch a.Type {
	case ActionClick, ActionExpectVisible:
	case ActionFill, ActionSelect:
		if a.Type == ActionSelect && a.Value == "" {
			return fmt.Errorf("%s requires a value", a.Type)
		}
	case ActionNavigate, ActionExpectURL:
		if a.Value == "" {
			return fmt.Errorf("%s requires a value", a.Type)
		}
		if a.Type == ActionExpectURL {
			if _, err := ParsePattern(a.Value); err != nil {
				return err
			}
		}
		return nil
	case ActionWaitLoad:
		switch a.State {
		case "", LoadStateLoad, LoadStateDOMContentLoaded, LoadStateNetworkIdle:
			return nil
		}
		return fmt.Errorf("unknown load state %q", a.State)
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	for _, q := range a.Queries() {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the action for logs and reports
func (a Action) String() string {
	switch {
	case a.Targeted() && a.Value != "":
		return fmt.Sprintf("%s %s = %q", a.Type, a.target(), a.Value)
	case a.Targeted():
		return fmt.Sprintf("%s %s", a.Type, a.target())
	case a.Type == ActionWaitLoad:
		state := a.State
		if state == "" {
			state = LoadStateLoad
		}
		return fmt.Sprintf("%s %s", a.Type, state)
	default:
		return fmt.Sprintf("%s %s", a.Type, a.Value)
	}
}

func (a Action) target() string {
	labels := make([]string, 0, 1+len(a.Or))
	for _, q := range a.Queries() {
		labels = append(labels, q.String())
	}
	return strings.Join(labels, " | ")
}

// ClickOutcome is the result of clicking an element that may not appear
type ClickOutcome string

const (
	Clicked ClickOutcome = "clicked"
	Skipped ClickOutcome = "skipped"
)
