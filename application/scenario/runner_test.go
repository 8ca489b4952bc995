package scenario

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"roadside_e2e/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var continueButton = entities.Role("button", "Continue")

func shortScenario(name string) entities.Scenario {
	return entities.Scenario{
		Name: name,
		Steps: []entities.Step{{
			Name:    "Continue",
			Actions: []entities.Action{click(continueButton)},
		}},
	}
}

func newTestRunner(sessions *fakeSessions, reporter *recordingReporter, cfg RunnerConfig) *Runner {
	return NewRunner(sessions, newTestDriver(nil, reporter), reporter, quietLogger(), cfg)
}

func TestRunnerRetriesWithFreshSession(t *testing.T) {
	sessions := &fakeSessions{newPage: func(attempt int) *fakePage {
		if attempt == 1 {
			return newFakePage(planURL, continueButton)
		}
		return newFakePage(planURL)
	}}
	reporter := &recordingReporter{}

	results, err := newTestRunner(sessions, reporter, RunnerConfig{Retries: 2}).Run(context.Background(), []entities.Scenario{shortScenario("flaky")})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed())
	assert.Equal(t, 2, results[0].Attempt)
	require.Len(t, sessions.opened, 2)
	assert.True(t, sessions.opened[0].closed.Load())
	assert.True(t, sessions.opened[1].closed.Load())
	require.Len(t, reporter.scenarios, 2)
	assert.Equal(t, entities.StatusFailed, reporter.scenarios[0].Status)
}

func TestRunnerReportsFinalFailure(t *testing.T) {
	sessions := &fakeSessions{newPage: func(int) *fakePage {
		return newFakePage(planURL, continueButton)
	}}
	reporter := &recordingReporter{}

	results, err := newTestRunner(sessions, reporter, RunnerConfig{Retries: 1}).Run(context.Background(), []entities.Scenario{shortScenario("broken"), shortScenario("also-broken")})

	require.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, err.Error(), "2 of 2")
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, entities.StatusFailed, res.Status)
		assert.Equal(t, 2, res.Attempt)
	}
	assert.Len(t, sessions.opened, 4)
}

func TestRunnerRespectsWorkerLimit(t *testing.T) {
	sessions := &fakeSessions{
		newPage: func(int) *fakePage { return newFakePage(planURL) },
		hold:    30 * time.Millisecond,
	}
	scenarios := make([]entities.Scenario, 6)
	for i := range scenarios {
		scenarios[i] = shortScenario(fmt.Sprintf("scenario-%d", i))
	}

	results, err := newTestRunner(sessions, &recordingReporter{}, RunnerConfig{Workers: 2}).Run(context.Background(), scenarios)

	require.NoError(t, err)
	for i, res := range results {
		assert.Equal(t, scenarios[i].Name, res.Scenario, "results keep input order")
	}
	assert.LessOrEqual(t, sessions.maxActive, 2)
	assert.Equal(t, 2, sessions.maxActive)
}

func TestRunnerSessionDefaults(t *testing.T) {
	sessions := &fakeSessions{newPage: func(int) *fakePage { return newFakePage(planURL) }}
	own := shortScenario("own")
	own.BaseURL = "https://own.example.com"
	own.UserAgent = "Own"

	_, err := newTestRunner(sessions, &recordingReporter{}, RunnerConfig{
		BaseURL:   "https://default.example.com",
		UserAgent: "BetterStack",
	}).Run(context.Background(), []entities.Scenario{shortScenario("default"), own})
	require.NoError(t, err)

	byURL := map[string]string{}
	for _, o := range sessions.options {
		byURL[o.BaseURL] = o.UserAgent
	}
	assert.Equal(t, "BetterStack", byURL["https://default.example.com"])
	assert.Equal(t, "Own", byURL["https://own.example.com"])
}

func TestRunnerSessionError(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("browser crashed")}
	results, err := newTestRunner(sessions, &recordingReporter{}, RunnerConfig{}).Run(context.Background(), []entities.Scenario{shortScenario("no-browser")})

	require.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, results[0].Error, "browser crashed")
}

func TestRunnerTraceOnFirstRetry(t *testing.T) {
	out := t.TempDir()
	sessions := &fakeSessions{newPage: func(attempt int) *fakePage {
		if attempt == 1 {
			return newFakePage(planURL, continueButton)
		}
		return newFakePage(planURL)
	}}

	results, err := newTestRunner(sessions, &recordingReporter{}, RunnerConfig{
		Retries:   1,
		Trace:     TraceOnFirstRetry,
		OutputDir: out,
	}).Run(context.Background(), []entities.Scenario{shortScenario("RV Platinum / Complete")})

	require.NoError(t, err)
	require.Len(t, sessions.options, 2)
	assert.False(t, sessions.options[0].Trace)
	assert.True(t, sessions.options[1].Trace)
	assert.Empty(t, sessions.opened[0].tracePath)

	want := filepath.Join(out, "traces", "RV-Platinum-Complete-attempt2.zip")
	assert.Equal(t, want, sessions.opened[1].tracePath)
	assert.Equal(t, want, results[0].TracePath)
	assert.DirExists(t, filepath.Join(out, "traces"))
}

func TestTraceModes(t *testing.T) {
	tests := []struct {
		in     string
		mode   TraceMode
		record []bool // attempts 1 and 2
		keep   []bool // attempt 1 passed, attempt 1 failed
	}{
		{"", TraceOff, []bool{false, false}, []bool{false, false}},
		{"on", TraceOn, []bool{true, true}, []bool{true, true}},
		{"On-First-Retry", TraceOnFirstRetry, []bool{false, true}, []bool{false, false}},
		{"retain-on-failure", TraceRetainOnFailure, []bool{true, true}, []bool{false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mode, err := ParseTraceMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.record, []bool{mode.record(1), mode.record(2)})
			assert.Equal(t, tt.keep, []bool{mode.keep(1, true), mode.keep(1, false)})
		})
	}

	_, err := ParseTraceMode("sometimes")
	assert.Error(t, err)
}
