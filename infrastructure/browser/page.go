package browser

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// page follows the most recently opened tab of a session, the way a user would
type page struct {
	mu            sync.Mutex
	current       playwright.Page
	pages         []playwright.Page
	logger        *logrus.Logger
	actionTimeout time.Duration
}

var _ interfaces.Page = (*page)(nil)

func newPage(pg playwright.Page, logger *logrus.Logger, actionTimeout time.Duration) *page {
	p := &page{
		logger:        logger,
		actionTimeout: actionTimeout,
	}
	p.adopt(pg)
	return p
}

// adopt makes pg the active tab and drops it again once it closes
func (p *page) adopt(pg playwright.Page) {
	p.mu.Lock()
	p.pages = append(p.pages, pg)
	p.current = pg
	p.mu.Unlock()

	pg.OnDialog(func(dialog playwright.Dialog) {
		entry := p.logger.WithFields(logrus.Fields{
			"type":    dialog.Type(),
			"message": dialog.Message(),
		})
		entry.Info("accepting dialog")
		if err := dialog.Accept(); err != nil {
			entry.WithError(err).Warn("failed to accept dialog")
		}
	})

	pg.OnClose(func(closed playwright.Page) {
		p.mu.Lock()
		defer p.mu.Unlock()

		for i, other := range p.pages {
			if other == closed {
				p.pages = append(p.pages[:i], p.pages[i+1:]...)
				break
			}
		}
		if p.current == closed && len(p.pages) > 0 {
			p.current = p.pages[len(p.pages)-1]
		}
	})
}

func (p *page) active() playwright.Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *page) timeoutMs() *float64 {
	return playwright.Float(float64(p.actionTimeout.Milliseconds()))
}

// Contexts flattens the frame tree: main frame first, then children depth-first,
// which is document order.
func (p *page) Contexts(ctx context.Context) ([]interfaces.RenderingContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := p.active()
	if current.IsClosed() {
		return nil, fmt.Errorf("page closed: %w", interfaces.ErrTransientContext)
	}

	var contexts []interfaces.RenderingContext
	var walk func(f playwright.Frame)
	walk = func(f playwright.Frame) {
		if f.IsDetached() {
			return
		}
		contexts = append(contexts, newFrameContext(f, len(contexts), p.actionTimeout))
		for _, child := range f.ChildFrames() {
			walk(child)
		}
	}
	walk(current.MainFrame())
	return contexts, nil
}

func (p *page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.active().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   p.timeoutMs(),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *page) URL() string {
	return p.active().URL()
}

func (p *page) WaitForLoad(ctx context.Context, state entities.LoadState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var s *playwright.LoadState
	switch state {
	case entities.LoadStateNetworkIdle:
		s = playwright.LoadStateNetworkidle
	case entities.LoadStateDOMContentLoaded:
		s = playwright.LoadStateDomcontentloaded
	default:
		s = playwright.LoadStateLoad
	}
	if err := p.active().WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   s,
		Timeout: p.timeoutMs(),
	}); err != nil {
		return fmt.Errorf("waiting for %s: %w", state, err)
	}
	return nil
}

// ExpectURL waits for the URL to match. A plain string matches as a substring.
func (p *page) ExpectURL(ctx context.Context, pattern interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s, ok := pattern.(string); ok {
		pattern = regexp.MustCompile(regexp.QuoteMeta(s))
	}
	err := playwright.NewPlaywrightAssertions().Page(p.active()).ToHaveURL(pattern, playwright.PageAssertionsToHaveURLOptions{
		Timeout: p.timeoutMs(),
	})
	if err != nil {
		return fmt.Errorf("url %s does not match %v: %w", p.URL(), pattern, err)
	}
	return nil
}
