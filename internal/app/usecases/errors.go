package usecases

import (
	"errors"
	"fmt"

	"github.com/commgraph/commgraph/internal/core/message"
)

// Transition errors
var (
	ErrNoValidTransition = errors.New("no valid transition")
	ErrNoValidSelfLoop   = errors.New("no valid self-loop transition")
	ErrNotStarted        = errors.New("transition engine not started")
	ErrNilDescription    = errors.New("nil topology description")
)

// RuleViolation reports a message the graph has no edge for
type RuleViolation struct {
	Err    error
	Node   string
	Kind   message.Kind
	Sender string
	Target string
}

func (e *RuleViolation) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%v: %s from %s at node %s to %s", e.Err, e.Kind, e.Sender, e.Node, e.Target)
	}
	return fmt.Sprintf("%v: %s from %s at node %s", e.Err, e.Kind, e.Sender, e.Node)
}

func (e *RuleViolation) Unwrap() error {
	return e.Err
}

// UserMessage implements message.UserFacing
func (e *RuleViolation) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrNoValidSelfLoop):
		return fmt.Sprintf("A %s message needs a recipient at this point", e.Kind)
	case e.Target != "":
		return fmt.Sprintf("You cannot send a %s message to %s", e.Kind, e.Target)
	}
	return fmt.Sprintf("A %s message is not allowed at this point", e.Kind)
}

// ErrActionExecution is wrapped by every ActionError
var ErrActionExecution = errors.New("action execution failed")

// ActionFailure classifies environment failures
type ActionFailure string

const (
	ActionEmpty         ActionFailure = "no actions to execute"
	ActionNoObservation ActionFailure = "received none observation after action execution"
	ActionFailed        ActionFailure = "failed to execute action"
)

var actionMessages = map[ActionFailure]string{
	ActionEmpty:         "Your action list is empty",
	ActionNoObservation: "The action could not be completed successfully",
	ActionFailed:        "The action you specified could not be executed",
}

// ActionError reports an EXECUTE or STATUS payload the environment could
// not carry out. It is recoverable.
type ActionError struct {
	Failure ActionFailure
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Failure, e.Cause)
	}
	return string(e.Failure)
}

// Is matches ErrActionExecution
func (e *ActionError) Is(target error) bool {
	return target == ErrActionExecution
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// UserMessage implements message.UserFacing
func (e *ActionError) UserMessage() string {
	if m, ok := actionMessages[e.Failure]; ok {
		return m
	}
	return "Your action could not be processed"
}
