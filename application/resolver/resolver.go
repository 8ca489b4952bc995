// Package resolver finds a ready element across the page and all of its frames.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no context produced a ready match before the deadline
var ErrNotFound = errors.New("element not found")

const (
	DefaultInitialBackoff = 50 * time.Millisecond
	DefaultMaxBackoff     = 250 * time.Millisecond
)

// NotFoundError describes an exhausted search
type NotFoundError struct {
	Queries  []entities.ElementQuery
	Timeout  time.Duration
	Attempts int
	cause    error
}

func (e *NotFoundError) Error() string {
	labels := make([]string, len(e.Queries))
	for i, q := range e.Queries {
		labels[i] = q.String()
	}
	msg := fmt.Sprintf("%s: no ready match in any frame after %s (%d attempts)", strings.Join(labels, " | "), e.Timeout, e.Attempts)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Resolved pairs a ready element with the context that owns it.
// It is only valid until that context navigates.
type Resolved struct {
	Context interfaces.RenderingContext
	Element interfaces.Element
	// Query is the query that matched
	Query entities.ElementQuery
	// Index is the position of Context in the captured list
	Index int
}

// Resolver searches contexts with a bounded poll-and-backoff loop. It holds no
// per-call state and may be shared between scenarios.
type Resolver struct {
	logger         *logrus.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Resolver
type Option func(*Resolver)

// WithBackoff sets the first and the largest wait between search rounds
func WithBackoff(initial, max time.Duration) Option {
	return func(r *Resolver) {
		if initial > 0 {
			r.initialBackoff = initial
		}
		if max >= r.initialBackoff {
			r.maxBackoff = max
		} else {
			r.maxBackoff = r.initialBackoff
		}
	}
}

// New creates a resolver
func New(logger *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		logger:         logger,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxBackoff is the longest pause between two search rounds
func (r *Resolver) MaxBackoff() time.Duration {
	return r.maxBackoff
}

func (r *Resolver) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialBackoff
	b.MaxInterval = r.maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Resolve returns the first ready element matching query, searching the page first
// and then frames in document order. The context list is captured fresh on every round.
func (r *Resolver) Resolve(ctx context.Context, source interfaces.ContextSource, query entities.ElementQuery, timeout time.Duration) (*Resolved, error) {
	return r.ResolveAny(ctx, source, []entities.ElementQuery{query}, timeout)
}

// ResolveAny is Resolve for alternatives: within each context the queries are tried
// in order, so an earlier context always wins over an earlier query.
func (r *Resolver) ResolveAny(ctx context.Context, source interfaces.ContextSource, queries []entities.ElementQuery, timeout time.Duration) (*Resolved, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries", entities.ErrInvalidQuery)
	}
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	if timeout < 0 {
		timeout = 0
	}

	deadline := time.Now().Add(timeout)
	b := r.newBackOff()
	attempts := 0

	for {
		attempts++
		found, err := r.searchOnce(ctx, source, queries)
		if err != nil {
			return nil, err
		}
		if found != nil {
			r.logger.WithFields(logrus.Fields{
				"query":    found.Query.String(),
				"context":  found.Context.Name(),
				"attempts": attempts,
			}).Debug("element resolved")
			return found, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &NotFoundError{Queries: queries, Timeout: timeout, Attempts: attempts}
		}

		wait := b.NextBackOff()
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &NotFoundError{Queries: queries, Timeout: timeout, Attempts: attempts, cause: ctx.Err()}
		case <-timer.C:
		}
	}
}

// searchOnce evaluates the queries against one fresh context snapshot
func (r *Resolver) searchOnce(ctx context.Context, source interfaces.ContextSource, queries []entities.ElementQuery) (*Resolved, error) {
	contexts, err := source.Contexts(ctx)
	if err != nil {
		// a page mid-navigation has no stable frame tree yet
		r.logger.WithError(err).Debug("capturing rendering contexts failed")
		return nil, nil
	}

	for i, rc := range contexts {
		for _, query := range queries {
			el, err := rc.First(ctx, query)
			if err != nil {
				if errors.Is(err, entities.ErrInvalidQuery) {
					return nil, err
				}
				r.logContextError(rc, query, err)
				// the context is gone for every query
				if errors.Is(err, interfaces.ErrTransientContext) {
					break
				}
				continue
			}
			if el == nil {
				continue
			}

			ready, err := el.Ready(ctx)
			if err != nil {
				r.logContextError(rc, query, err)
				continue
			}
			if ready {
				return &Resolved{Context: rc, Element: el, Query: query, Index: i}, nil
			}
		}
	}
	return nil, nil
}

func (r *Resolver) logContextError(rc interfaces.RenderingContext, query entities.ElementQuery, err error) {
	entry := r.logger.WithFields(logrus.Fields{
		"query":   query.String(),
		"context": rc.Name(),
	}).WithError(err)
	if errors.Is(err, interfaces.ErrTransientContext) {
		entry.Debug("context unavailable, treating as no match")
		return
	}
	entry.Warn("query failed in context, treating as no match")
}

// ClickCheck inspects a resolved element right before ClickIfPresent clicks it.
// A non-nil error cancels the click and is returned unchanged.
type ClickCheck func(ctx context.Context, found *Resolved) error

// ClickIfPresent clicks the element when it becomes ready within timeout and
// reports Skipped otherwise. Only malformed queries, failed checks and failed
// clicks return errors.
func (r *Resolver) ClickIfPresent(ctx context.Context, source interfaces.ContextSource, query entities.ElementQuery, timeout time.Duration, checks ...ClickCheck) (entities.ClickOutcome, error) {
	found, err := r.Resolve(ctx, source, query, timeout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.WithFields(logrus.Fields{
				"query":   query.String(),
				"timeout": timeout,
			}).Info("optional element not present, skipping")
			return entities.Skipped, nil
		}
		return entities.Skipped, err
	}

	for _, check := range checks {
		if err := check(ctx, found); err != nil {
			return entities.Skipped, err
		}
	}

	if err := found.Element.Click(ctx); err != nil {
		return entities.Skipped, fmt.Errorf("click %s in %s: %w", query, found.Context.Name(), err)
	}
	r.logger.WithFields(logrus.Fields{
		"query":   query.String(),
		"context": found.Context.Name(),
	}).Info("optional element clicked")
	return entities.Clicked, nil
}
