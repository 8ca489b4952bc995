package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"
)

type fakeElement struct {
	id       string
	text     string
	ready    func() bool
	readyErr error
	clicks   atomic.Int32
}

func (e *fakeElement) Ready(context.Context) (bool, error) {
	if e.readyErr != nil {
		return false, e.readyErr
	}
	if e.ready == nil {
		return true, nil
	}
	return e.ready(), nil
}

func (e *fakeElement) Click(context.Context) error {
	e.clicks.Add(1)
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Fill(context.Context, string) error { return nil }

func (e *fakeElement) SelectOption(context.Context, string) error { return nil }

// fakeContext answers queries through match; a nil element means no match
type fakeContext struct {
	name    string
	match   func(q entities.ElementQuery) (interfaces.Element, error)
	queried atomic.Int32
}

func (c *fakeContext) Name() string { return c.name }

func (c *fakeContext) First(_ context.Context, q entities.ElementQuery) (interfaces.Element, error) {
	c.queried.Add(1)
	if c.match == nil {
		return nil, nil
	}
	return c.match(q)
}

func emptyContext(name string) *fakeContext {
	return &fakeContext{name: name}
}

func matchingContext(name string, el *fakeElement) *fakeContext {
	return &fakeContext{name: name, match: func(entities.ElementQuery) (interfaces.Element, error) {
		return el, nil
	}}
}

func appearingContext(name string, el *fakeElement, after time.Duration) *fakeContext {
	start := time.Now()
	return &fakeContext{name: name, match: func(entities.ElementQuery) (interfaces.Element, error) {
		if time.Since(start) < after {
			return nil, nil
		}
		return el, nil
	}}
}

func detachedContext(name string) *fakeContext {
	return &fakeContext{name: name, match: func(entities.ElementQuery) (interfaces.Element, error) {
		return nil, fmt.Errorf("frame %s: %w", name, interfaces.ErrTransientContext)
	}}
}

// fakeSource returns a new snapshot on every capture
type fakeSource struct {
	mu       sync.Mutex
	contexts func(capture int) []interfaces.RenderingContext
	captures int
	// failFirst captures return an error, like a page mid-navigation
	failFirst int
}

func staticSource(contexts ...interfaces.RenderingContext) *fakeSource {
	return &fakeSource{contexts: func(int) []interfaces.RenderingContext { return contexts }}
}

func (s *fakeSource) Contexts(context.Context) ([]interfaces.RenderingContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures++
	if s.captures <= s.failFirst {
		return nil, errors.New("execution context was destroyed, most likely because of a navigation")
	}
	return s.contexts(s.captures), nil
}

func (s *fakeSource) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}
