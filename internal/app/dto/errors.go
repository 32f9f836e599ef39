package dto

import (
	"errors"
	"fmt"
)

// Episode errors
var (
	ErrEpisodeAborted  = errors.New("episode aborted")
	ErrEpisodeFinished = errors.New("episode already finished")
	ErrInvalidLimits   = errors.New("invalid episode limits")
)

// AbortReason names the fatal condition that ended an episode
type AbortReason string

const (
	AbortMaxRounds             AbortReason = "max_rounds"
	AbortMaxTransitions        AbortReason = "max_transitions_per_round"
	AbortConsecutiveViolations AbortReason = "consecutive_violations"
	AbortTotalViolations       AbortReason = "total_violations"
	AbortCommunicationBlocked  AbortReason = "communication_blocked"
)

// AbortError is the fatal outcome of a turn. It is a distinct type from the
// recoverable errors so callers cannot retry it by accident.
type AbortError struct {
	Reason AbortReason
	Detail string
	Cause  error
}

func (e *AbortError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("episode aborted: %s", e.Reason)
	}
	return fmt.Sprintf("episode aborted: %s: %s", e.Reason, e.Detail)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// Is matches ErrEpisodeAborted
func (e *AbortError) Is(target error) bool {
	return target == ErrEpisodeAborted
}

// IsAbort reports whether err is, or wraps, an *AbortError
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
