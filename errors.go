package radau5

import (
	"errors"
	"fmt"

	"github.com/soypat/radau5/linsol"
)

// Status is the numeric outcome of a Solve call. Non-negative values are
// successful terminations; negative values are fatal and correspond to
// the sentinel errors below, so an outer driver can dispatch on the
// number without parsing strings.
type Status int

// Solve outcomes.
const (
	StatusOK       Status = 0 // step accepted, integration continuing
	StatusEvent    Status = 1 // stopped at a located state event
	StatusComplete Status = 2 // reached the final time

	StatusSingular           Status = -1 // iteration matrix singular
	StatusNewtonFailed       Status = -2 // Newton restart cap exceeded
	StatusStepTooSmall       Status = -3 // controller drove h below ε·max(|t|,1)
	StatusMaxSteps           Status = -4 // attempt cap exceeded
	StatusTimeLimit          Status = -5 // cooperative time budget exceeded
	StatusCallback           Status = -6 // non-recoverable user callback failure
	StatusBackendUnavailable Status = -7 // requested linear solver not built in
	StatusBadInput           Status = -8 // invalid problem, option or argument
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusEvent:
		return "EVENT"
	case StatusComplete:
		return "COMPLETE"
	case StatusSingular:
		return "SINGULAR"
	case StatusNewtonFailed:
		return "NEWTON_FAILED"
	case StatusStepTooSmall:
		return "STEP_TOO_SMALL"
	case StatusMaxSteps:
		return "MAX_STEPS"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	case StatusCallback:
		return "CALLBACK_FAILED"
	case StatusBackendUnavailable:
		return "BACKEND_UNAVAILABLE"
	case StatusBadInput:
		return "BAD_INPUT"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var (
	// ErrRecoverable marks a callback failure that should be answered by
	// shrinking the step and retrying. User callbacks return it, possibly
	// wrapped, to request the retry.
	ErrRecoverable = errors.New("radau5: recoverable callback failure")
	// ErrNewtonFailed reports that the Newton iteration did not converge
	// within its restart budget.
	ErrNewtonFailed = errors.New("radau5: newton iteration failed to converge")
	// ErrStepTooSmall reports a step size below machine resolution.
	ErrStepTooSmall = errors.New("radau5: step size too small")
	// ErrMaxSteps reports that the attempt cap was exceeded before tf.
	ErrMaxSteps = errors.New("radau5: final time not reached within maximum number of steps")
	// ErrTimeLimit reports that the configured time budget ran out.
	ErrTimeLimit = errors.New("radau5: time limit exceeded")
	// ErrBackendUnavailable reports a linear solver that is not compiled
	// into this build.
	ErrBackendUnavailable = errors.New("radau5: linear solver back-end unavailable")
	// ErrInterpolation reports an interpolation request outside the last
	// accepted step.
	ErrInterpolation = errors.New("radau5: interpolation time outside the last accepted step")
)

// CallbackError carries a non-recoverable user callback failure out of
// Solve with the original error intact.
type CallbackError struct {
	Op  string // which callback failed: "rhs", "jacobian", "events", "report"
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("radau5: %s callback: %v", e.Op, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// statusOf maps a fatal error to its numeric status.
func statusOf(err error) Status {
	var cbe *CallbackError
	switch {
	case err == nil:
		return StatusComplete
	case errors.Is(err, linsol.ErrSingular):
		return StatusSingular
	case errors.Is(err, ErrNewtonFailed):
		return StatusNewtonFailed
	case errors.Is(err, ErrStepTooSmall):
		return StatusStepTooSmall
	case errors.Is(err, ErrMaxSteps):
		return StatusMaxSteps
	case errors.Is(err, ErrTimeLimit):
		return StatusTimeLimit
	case errors.Is(err, ErrBackendUnavailable):
		return StatusBackendUnavailable
	case errors.As(err, &cbe):
		return StatusCallback
	}
	return StatusBadInput
}
