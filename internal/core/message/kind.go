// Package message defines the wire protocol exchanged between players:
// message kinds, target-field rules, role permissions and shape validation.
package message

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies what a message asks the engine to do
type Kind string

const (
	// KindExecute runs actions in the environment
	KindExecute Kind = "EXECUTE"
	// KindRequest asks another player for something
	KindRequest Kind = "REQUEST"
	// KindResponse answers another player
	KindResponse Kind = "RESPONSE"
	// KindStatus ends the episode with a final status
	KindStatus Kind = "STATUS"
	// KindTask hands a task description to the conversation
	KindTask Kind = "TASK"
	// KindWriteBoard appends to the shared blackboard
	KindWriteBoard Kind = "WRITE_BOARD"
)

// AllKinds lists every kind in declaration order
var AllKinds = []Kind{KindExecute, KindRequest, KindResponse, KindStatus, KindTask, KindWriteBoard}

// RequiresTarget reports whether messages of this kind must name a recipient
func RequiresTarget(k Kind) bool {
	return k == KindRequest || k == KindResponse
}

// ForbidsTarget reports whether messages of this kind must not name a recipient
func ForbidsTarget(k Kind) bool {
	return k.Valid() && !RequiresTarget(k)
}

// IsAction reports whether messages of this kind are executed by the environment
func (k Kind) IsAction() bool {
	return k == KindExecute || k == KindStatus
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a wire kind. Wire names are matched exactly.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q, must be one of %s", ErrUnknownKind, s, KindNames(AllKinds))
	}
	return k, nil
}

// KindFromConfig parses a kind name written in a configuration file,
// where case is not significant.
func KindFromConfig(s string) (Kind, error) {
	return ParseKind(strings.ToUpper(strings.TrimSpace(s)))
}

// KindNames renders kinds as a sorted, comma separated list
func KindNames(kinds []Kind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
