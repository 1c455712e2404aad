package main

import (
	"errors"

	"jqs/internal/directive"
	"jqs/internal/store"
)

// exitError pairs an error with the process exit code it should produce
// (spec §6's per-command exit code table; spec §7's propagation policy:
// "CLI operations fail fast with a non-zero exit code and a one-line
// stderr message").
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor classifies err per spec §6/§7 when the command didn't
// already wrap it in an exitError.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var bad *directive.BadDirective
	if errors.As(err, &bad) {
		return 2
	}
	if errors.Is(err, store.ErrNotFound) {
		return 4
	}
	if errors.Is(err, store.ErrAlreadyTerminal) {
		return 5
	}
	return 1
}
