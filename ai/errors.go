// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrAI is the base error for planning and execution failures.
	ErrAI = errors.New("ai error")

	// ErrConfiguration indicates a missing or invalid option at construction time.
	ErrConfiguration = fmt.Errorf("%w: configuration", ErrAI)

	// ErrUnknownAction is returned by [ActionRegistry.Get] for unregistered names.
	ErrUnknownAction = fmt.Errorf("%w: unknown action", ErrAI)

	// ErrDuplicateAction is returned when registering over an entry that
	// does not allow overrides.
	ErrDuplicateAction = fmt.Errorf("%w: duplicate action", ErrAI)

	// ErrRunFailed indicates an assistant run ended in a failed state.
	ErrRunFailed = fmt.Errorf("%w: run failed", ErrAI)

	// ErrOperationFailed wraps unexpected transport or serialization failures.
	ErrOperationFailed = fmt.Errorf("%w: operation failed", ErrAI)

	// ErrTooManySteps indicates the run loop exceeded its step or time budget.
	ErrTooManySteps = fmt.Errorf("%w: too many steps", ErrAI)

	// ErrHTTPFailed is raised by the default http-error action.
	ErrHTTPFailed = fmt.Errorf("%w: http request failed", ErrAI)

	// ErrInvalidParameters indicates an action received parameters of the wrong shape.
	ErrInvalidParameters = fmt.Errorf("%w: invalid parameters", ErrAI)

	// ErrService is the base error for backend service failures.
	ErrService = errors.New("service error")

	// ErrRateLimited indicates the service answered with HTTP 429.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrService)

	// ErrContentFilter indicates the request was rejected by a content filter.
	ErrContentFilter = fmt.Errorf("%w: content filter", ErrService)

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)
)

// ServiceError provides rich context for backend service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// RunFailedError carries the vendor status and error details of a run that
// ended without completing.
type RunFailedError struct {
	Status  string
	Code    string
	Message string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run failed %s. ErrorCode: %s. ErrorMessage: %s", e.Status, e.Code, e.Message)
}

func (e *RunFailedError) Unwrap() error { return ErrRunFailed }

// ActionError provides context for action registration and dispatch failures.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q: %s", e.Action, e.Message)
}

func (e *ActionError) Unwrap() error { return e.Err }
