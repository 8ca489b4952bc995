package interfaces

import (
	"context"
	"errors"

	"roadside_e2e/domain/entities"
)

// ErrTransientContext marks a rendering context that became unusable mid-search
// (detached frame, navigation in progress, closed target).
var ErrTransientContext = errors.New("rendering context unavailable")

// Element is a handle to a matched element inside one rendering context
type Element interface {
	// Ready reports whether the element is visible, sized, unobscured and enabled right now
	Ready(ctx context.Context) (bool, error)

	// Text is the element's visible text, accessible label and value attribute
	Text(ctx context.Context) (string, error)

	Click(ctx context.Context) error

	Fill(ctx context.Context, value string) error

	// SelectOption selects an option by label, falling back to value
	SelectOption(ctx context.Context, option string) error
}

// RenderingContext is the top-level page or one nested frame
type RenderingContext interface {
	// Name identifies the context in logs, e.g. "page" or "frame[2] checkout"
	Name() string

	// First returns the first element matching the query, or nil when nothing matches.
	// Errors wrapping ErrTransientContext mean the context is gone; errors wrapping
	// entities.ErrInvalidQuery mean the query itself is malformed.
	First(ctx context.Context, query entities.ElementQuery) (Element, error)
}

// ContextSource captures the current flattened context list: page first, then
// frames in document order.
type ContextSource interface {
	Contexts(ctx context.Context) ([]RenderingContext, error)
}

// Page is the scenario-facing view of one browser tab
type Page interface {
	ContextSource

	Navigate(ctx context.Context, url string) error

	URL() string

	WaitForLoad(ctx context.Context, state entities.LoadState) error

	// ExpectURL waits until the page URL matches pattern (literal substring or regexp)
	ExpectURL(ctx context.Context, pattern interface{}) error
}

// Session is one isolated browser context with a single page
type Session interface {
	Page() Page

	// Close releases the session. When tracePath is non-empty the recorded trace is saved there.
	Close(tracePath string) error
}

// SessionOptions configure a new session
type SessionOptions struct {
	BaseURL   string
	UserAgent string
	Trace     bool
}

// SessionFactory opens isolated sessions, one per scenario attempt
type SessionFactory interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}
