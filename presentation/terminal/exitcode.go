package terminal

import "errors"

// ExitCode is the process status for an error that reaches main
type ExitCode uint8

const (
	ExitGenericError   ExitCode = 1
	ExitScenarioFailed ExitCode = 99
	ExitInvalidConfig  ExitCode = 104
	ExitBrowserError   ExitCode = 105
)

type exitError struct {
	err  error
	code ExitCode
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// withCode tags err with code. A code already present deeper in the chain wins.
func withCode(err error, code ExitCode) error {
	if err == nil {
		return nil
	}
	var tagged *exitError
	if errors.As(err, &tagged) {
		return err
	}
	return &exitError{err: err, code: code}
}

// ExitCodeOf returns the code attached to err, or ExitGenericError
func ExitCodeOf(err error) ExitCode {
	var tagged *exitError
	if errors.As(err, &tagged) {
		return tagged.code
	}
	return ExitGenericError
}
