package rules

import (
	"errors"
	"fmt"
)

// ErrCommunicationBlocked is matched by every *BlockedError
var ErrCommunicationBlocked = errors.New("communication blocked")

// BlockedError reports a sender messaging a peer it is blocked from.
// Abort is set once the sender's violations reach the configured threshold.
type BlockedError struct {
	Sender     string
	Target     string
	Violations int
	Threshold  int
	Abort      bool
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("cycle-breaking rule violation: %s is blocked from REQUEST/RESPONSE messages to %s until it sends EXECUTE (%d/%d)",
		e.Sender, e.Target, e.Violations, e.Threshold)
}

func (e *BlockedError) Unwrap() error {
	return ErrCommunicationBlocked
}

// UserMessage is the re-prompt sentence for a blocked sender
func (e *BlockedError) UserMessage() string {
	return fmt.Sprintf("You are blocked from sending REQUEST/RESPONSE messages to %s. Use EXECUTE first to break the communication cycle.", e.Target)
}
