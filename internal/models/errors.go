package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")

	// ErrAIUnavailable means no credential is configured for the selected
	// provider. It is a distinct outcome, not a transport failure: callers
	// must fail their unit immediately without attempting a network call.
	ErrAIUnavailable = errors.New("ai provider unavailable: no API key configured")

	// ErrTaskTerminal is returned when an update targets a task that has
	// already completed or failed.
	ErrTaskTerminal = errors.New("task already in terminal state")
)
