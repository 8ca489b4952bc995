package browser

import (
	"errors"
	"fmt"
	"strings"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/playwright-community/playwright-go"
)

var transientMarkers = []string{
	"target closed",
	"has been closed",
	"frame was detached",
	"detached",
	"execution context was destroyed",
	"navigating",
	"navigation",
}

var invalidSelectorMarkers = []string{
	"is not a valid selector",
	"unexpected token",
	"unknown engine",
	"malformed",
	"failed to parse",
}

// classify tags playwright errors so the resolver can tell a vanished frame
// from a broken query
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) || errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", interfaces.ErrTransientContext, err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range invalidSelectorMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", entities.ErrInvalidQuery, err)
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", interfaces.ErrTransientContext, err)
		}
	}
	return err
}

func isClosedError(err error) bool {
	if errors.Is(err, playwright.ErrTargetClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

// truncateString - truncates string to maximum length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
