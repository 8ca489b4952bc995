package scenario

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"roadside_e2e/application/resolver"
	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestDriver(guard interfaces.ActionGuard, reporter interfaces.Reporter) *Driver {
	logger := quietLogger()
	r := resolver.New(logger, resolver.WithBackoff(5*time.Millisecond, 20*time.Millisecond))
	return NewDriver(r, guard, reporter, logger, DriverConfig{
		Timeout:         150 * time.Millisecond,
		OptionalTimeout: 30 * time.Millisecond,
	})
}

type fakeElement struct {
	mu       sync.Mutex
	page     *fakePage
	query    entities.ElementQuery
	text     string
	clicks   int
	filled   []string
	selected []string
	clickErr error
}

func (e *fakeElement) Ready(context.Context) (bool, error) { return true, nil }

func (e *fakeElement) Text(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	e.clicks++
	err := e.clickErr
	e.mu.Unlock()
	if err == nil {
		e.page.clicked(e.query)
	}
	return err
}

func (e *fakeElement) Fill(_ context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filled = append(e.filled, value)
	return nil
}

func (e *fakeElement) SelectOption(_ context.Context, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = append(e.selected, option)
	return nil
}

func (e *fakeElement) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// fakePage shows every queried element in a nested frame unless it is marked absent
type fakePage struct {
	mu          sync.Mutex
	url         string
	absent      map[entities.ElementQuery]bool
	elements    map[entities.ElementQuery]*fakeElement
	onClick     map[entities.ElementQuery]func(p *fakePage)
	navigations []string
	loads       []entities.LoadState
}

func newFakePage(url string, absent ...entities.ElementQuery) *fakePage {
	p := &fakePage{
		url:      url,
		absent:   map[entities.ElementQuery]bool{},
		elements: map[entities.ElementQuery]*fakeElement{},
		onClick:  map[entities.ElementQuery]func(p *fakePage){},
	}
	for _, q := range absent {
		p.absent[q] = true
	}
	return p
}

func (p *fakePage) element(q entities.ElementQuery) *fakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[q]
	if !ok {
		el = &fakeElement{page: p, query: q, text: q.Name + q.Text + q.Label}
		p.elements[q] = el
	}
	return el
}

func (p *fakePage) setAbsent(q entities.ElementQuery, absent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.absent[q] = absent
}

func (p *fakePage) clicked(q entities.ElementQuery) {
	p.mu.Lock()
	hook := p.onClick[q]
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

func (p *fakePage) Contexts(context.Context) ([]interfaces.RenderingContext, error) {
	return []interfaces.RenderingContext{
		&fakeContext{name: "page"},
		&fakeContext{name: "frame[1] checkout", page: p},
	}, nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) WaitForLoad(_ context.Context, state entities.LoadState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads = append(p.loads, state)
	return nil
}

func (p *fakePage) ExpectURL(_ context.Context, pattern interface{}) error {
	url := p.URL()
	switch pat := pattern.(type) {
	case *regexp.Regexp:
		if pat.MatchString(url) {
			return nil
		}
	case string:
		if strings.Contains(url, pat) {
			return nil
		}
	}
	return errors.New("url mismatch")
}

type fakeContext struct {
	name string
	page *fakePage
}

func (c *fakeContext) Name() string { return c.name }

func (c *fakeContext) First(_ context.Context, q entities.ElementQuery) (interfaces.Element, error) {
	if c.page == nil {
		return nil, nil
	}
	c.page.mu.Lock()
	absent := c.page.absent[q]
	c.page.mu.Unlock()
	if absent {
		return nil, nil
	}
	return c.page.element(q), nil
}

type fakeSession struct {
	page      *fakePage
	closed    atomic.Bool
	tracePath string
}

func (s *fakeSession) Page() interfaces.Page { return s.page }

func (s *fakeSession) Close(tracePath string) error {
	s.closed.Store(true)
	s.tracePath = tracePath
	return nil
}

// fakeSessions hands out pages built by newPage and tracks concurrency
type fakeSessions struct {
	mu        sync.Mutex
	newPage   func(attempt int) *fakePage
	opened    []*fakeSession
	options   []interfaces.SessionOptions
	err       error
	active    int
	maxActive int
	hold      time.Duration
}

func (f *fakeSessions) NewSession(_ context.Context, opts interfaces.SessionOptions) (interfaces.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSession{page: f.newPage(len(f.opened) + 1)}
	f.opened = append(f.opened, s)
	f.options = append(f.options, opts)
	return &trackedSession{fakeSession: s, owner: f}, nil
}

func (f *fakeSessions) enter() {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
}

func (f *fakeSessions) leave() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

// trackedSession counts sessions in use while their page is being driven
type trackedSession struct {
	*fakeSession
	owner   *fakeSessions
	entered atomic.Bool
}

func (s *trackedSession) Page() interfaces.Page {
	if s.entered.CompareAndSwap(false, true) {
		s.owner.enter()
		time.Sleep(s.owner.hold)
	}
	return s.fakeSession.Page()
}

func (s *trackedSession) Close(tracePath string) error {
	if s.entered.Load() {
		s.owner.leave()
	}
	return s.fakeSession.Close(tracePath)
}

type recordingReporter struct {
	mu        sync.Mutex
	actions   []entities.ActionResult
	steps     []entities.StepResult
	scenarios []entities.ScenarioResult
}

func (r *recordingReporter) ActionFinished(_, _ string, result entities.ActionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, result)
}

func (r *recordingReporter) StepFinished(_ string, result entities.StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, result)
}

func (r *recordingReporter) ScenarioFinished(result entities.ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios = append(r.scenarios, result)
}

type denyGuard struct {
	err error
}

func (g denyGuard) Check(context.Context, entities.Action, string, string) error { return g.err }
