package topology

import (
	"errors"
	"fmt"
)

// Topology errors
var (
	ErrUnknownTopology     = errors.New("unknown topology")
	ErrInvalidParticipants = errors.New("invalid participants")
	ErrUndefinedRole       = errors.New("role has no definition")
	ErrAnchorNotFound      = errors.New("anchor node not found")
	ErrInvalidAnchorConfig = errors.New("invalid anchor configuration")
	ErrDescriptionNotFound = errors.New("topology description not found")
)

// ValidationError reports a roster or anchor setting the topology rejects
type ValidationError struct {
	Topology Type
	Reason   string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s topology: %s", e.Topology, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(t Type, format string, args ...any) error {
	return &ValidationError{Topology: t, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidParticipants}
}
