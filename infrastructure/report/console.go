// Package report prints scenario progress and the final summary.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/fatih/color"
)

// Console writes one line per action and step as they finish
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool

	pass *color.Color
	fail *color.Color
	skip *color.Color
	dim  *color.Color
}

var _ interfaces.Reporter = (*Console)(nil)

// NewConsole creates a console reporter; verbose also prints every action
func NewConsole(out io.Writer, verbose bool) *Console {
	return &Console{
		out:     out,
		verbose: verbose,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		skip:    color.New(color.FgYellow),
		dim:     color.New(color.Faint),
	}
}

func (c *Console) mark(status entities.Status) string {
	switch status {
	case entities.StatusPassed:
		return c.pass.Sprint("✓")
	case entities.StatusSkipped:
		return c.skip.Sprint("-")
	default:
		return c.fail.Sprint("✗")
	}
}

func (c *Console) ActionFinished(scenario, step string, result entities.ActionResult) {
	if !c.verbose && result.Status == entities.StatusPassed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("    %s %s", c.mark(result.Status), result.Label)
	if result.Context != "" {
		line += c.dim.Sprintf(" [%s]", result.Context)
	}
	line += c.dim.Sprintf(" %s", result.Duration.Round(time.Millisecond))
	if result.Error != "" {
		line += "\n      " + result.Error
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) StepFinished(scenario string, result entities.StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "  %s %s %s\n", c.mark(result.Status), result.Name, c.dim.Sprint(result.Duration.Round(time.Millisecond)))
}

func (c *Console) ScenarioFinished(result entities.ScenarioResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s %s (attempt %d) %s\n", c.mark(result.Status), result.Scenario, result.Attempt,
		c.dim.Sprint(result.Duration.Round(time.Millisecond)))
	if result.Error != "" {
		fmt.Fprintf(c.out, "  %s\n", c.fail.Sprint(result.Error))
	}
	if result.TracePath != "" {
		fmt.Fprintf(c.out, "  trace: %s\n", result.TracePath)
	}
}

// Summary prints the totals of a run
func (c *Console) Summary(results []entities.ScenarioResult, resultsPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	passed, failed, flaky := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Passed() && r.Attempt > 1:
			flaky++
		case r.Passed():
			passed++
		default:
			failed++
		}
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%s  %s  %s\n",
		c.pass.Sprintf("%d passed", passed),
		c.skip.Sprintf("%d flaky", flaky),
		c.fail.Sprintf("%d failed", failed))
	if resultsPath != "" {
		fmt.Fprintf(c.out, "results: %s\n", resultsPath)
	}
}
