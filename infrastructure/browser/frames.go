package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/playwright-community/playwright-go"
)

// readinessProbe bounds the per-element checks made while polling
const readinessProbe = 250 * time.Millisecond

// hitTestScript reports whether the element receives pointer events at the
// centre of its box. Points outside the viewport are not judged since a click
// scrolls the element into view first.
const hitTestScript = `el => {
	const r = el.getBoundingClientRect();
	const x = r.left + r.width / 2, y = r.top + r.height / 2;
	if (x < 0 || y < 0 || x >= window.innerWidth || y >= window.innerHeight) return true;
	const root = el.getRootNode();
	const hit = (root.elementFromPoint ? root : document).elementFromPoint(x, y);
	if (!hit) return false;
	if (el === hit || el.contains(hit)) return true;
	const label = hit.closest('label');
	return !!label && label.control === el;
}`

const textScript = `el => [el.innerText, el.getAttribute('aria-label'), el.getAttribute('value'), el.getAttribute('title')]
	.filter(Boolean).join(' ')`

type frameContext struct {
	frame         playwright.Frame
	name          string
	actionTimeout time.Duration
}

func newFrameContext(f playwright.Frame, index int, actionTimeout time.Duration) *frameContext {
	name := "page"
	if index > 0 {
		label := f.Name()
		if label == "" {
			label = f.URL()
		}
		name = fmt.Sprintf("frame[%d] %s", index, truncateString(label, 80))
	}
	return &frameContext{frame: f, name: name, actionTimeout: actionTimeout}
}

func (c *frameContext) Name() string {
	return c.name
}

func (c *frameContext) First(ctx context.Context, query entities.ElementQuery) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.frame.IsDetached() {
		return nil, fmt.Errorf("%s detached: %w", c.name, interfaces.ErrTransientContext)
	}

	loc, err := buildLocator(c.frame, query)
	if err != nil {
		return nil, err
	}
	count, err := loc.Count()
	if err != nil {
		return nil, classify(err)
	}
	if count == 0 {
		return nil, nil
	}
	return &element{loc: loc.First(), actionTimeout: c.actionTimeout}, nil
}

// buildLocator maps a query onto the frame's locator API
func buildLocator(f playwright.Frame, q entities.ElementQuery) (playwright.Locator, error) {
	var loc playwright.Locator
	switch q.Kind() {
	case entities.QueryCSS:
		loc = f.Locator(q.CSS)
	case entities.QueryRole:
		opts := playwright.FrameGetByRoleOptions{Exact: playwright.Bool(q.Exact)}
		if q.Name != "" {
			name, err := entities.ParsePattern(q.Name)
			if err != nil {
				return nil, err
			}
			opts.Name = name
		}
		loc = f.GetByRole(playwright.AriaRole(q.Role), opts)
	case entities.QueryText:
		text, err := entities.ParsePattern(q.Text)
		if err != nil {
			return nil, err
		}
		loc = f.GetByText(text, playwright.FrameGetByTextOptions{Exact: playwright.Bool(q.Exact)})
	case entities.QueryLabel:
		label, err := entities.ParsePattern(q.Label)
		if err != nil {
			return nil, err
		}
		loc = f.GetByLabel(label, playwright.FrameGetByLabelOptions{Exact: playwright.Bool(q.Exact)})
	default:
		return nil, q.Validate()
	}

	if q.HasText != "" {
		hasText, err := entities.ParsePattern(q.HasText)
		if err != nil {
			return nil, err
		}
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: hasText})
	}
	return loc, nil
}

type element struct {
	loc           playwright.Locator
	actionTimeout time.Duration
}

func (e *element) timeoutMs() *float64 {
	return playwright.Float(float64(e.actionTimeout.Milliseconds()))
}

// Ready is visible, non-zero size, unobscured and enabled at the moment of the call
func (e *element) Ready(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	probe := playwright.Float(float64(readinessProbe.Milliseconds()))

	visible, err := e.loc.IsVisible()
	if err != nil {
		return false, classify(err)
	}
	if !visible {
		return false, nil
	}

	box, err := e.loc.BoundingBox(playwright.LocatorBoundingBoxOptions{Timeout: probe})
	if err != nil {
		return false, classify(err)
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return false, nil
	}

	enabled, err := e.loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: probe})
	if err != nil {
		return false, classify(err)
	}
	if !enabled {
		return false, nil
	}

	hit, err := e.loc.Evaluate(hitTestScript, nil, playwright.LocatorEvaluateOptions{Timeout: probe})
	if err != nil {
		return false, classify(err)
	}
	unobscured, _ := hit.(bool)
	return unobscured, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.loc.Evaluate(textScript, nil, playwright.LocatorEvaluateOptions{
		Timeout: playwright.Float(float64(readinessProbe.Milliseconds())),
	})
	if err != nil {
		return "", classify(err)
	}
	s, _ := text.(string)
	return strings.TrimSpace(s), nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click(playwright.LocatorClickOptions{Timeout: e.timeoutMs()})
}

func (e *element) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: e.timeoutMs()})
}

// SelectOption tries the option label first and the option value second
func (e *element) SelectOption(ctx context.Context, option string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{option}}, playwright.LocatorSelectOptionOptions{
		Timeout: e.timeoutMs(),
	})
	if err == nil {
		return nil
	}
	if _, valueErr := e.loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{option}}, playwright.LocatorSelectOptionOptions{
		Timeout: e.timeoutMs(),
	}); valueErr != nil {
		return fmt.Errorf("no option with label or value %q: %w", option, err)
	}
	return nil
}
