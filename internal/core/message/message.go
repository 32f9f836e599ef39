package message

import (
	"fmt"
	"regexp"
)

// Action is one structured environment action, as sent in EXECUTE content
// under a structured action space.
type Action map[string]any

// Message is a shape-validated wire message
type Message struct {
	Kind    Kind     `json:"type"`
	From    string   `json:"from"`
	To      string   `json:"to,omitempty"`
	Content string   `json:"content,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

// HasTarget reports whether the message names a recipient
func (m Message) HasTarget() bool {
	return m.To != ""
}

// Payload returns the actions to hand to an environment. Plain string
// content becomes a single action holding the raw text; empty content and
// an empty action list yield no actions.
func (m Message) Payload() []Action {
	if m.Actions != nil {
		return m.Actions
	}
	if m.Content == "" {
		return nil
	}
	return []Action{{"command": m.Content}}
}

// ShapeOptions tunes ValidateShape
type ShapeOptions struct {
	// StructuredActions makes EXECUTE content a list of action objects
	// instead of a string.
	StructuredActions bool
}

var requiredFields = []string{"type", "from", "content"}

// ValidateShape checks a decoded wire object and returns the typed message.
// Failures are *ShapeError values.
func ValidateShape(raw map[string]any, opts ShapeOptions) (Message, error) {
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return Message{}, &ShapeError{Reason: ReasonMissingField, Field: field, Detail: "required field is absent"}
		}
	}

	kindStr, ok := raw["type"].(string)
	if !ok {
		return Message{}, &ShapeError{Reason: ReasonWrongFieldType, Field: "type", Detail: "must be a string"}
	}
	kind, err := ParseKind(kindStr)
	if err != nil {
		return Message{}, &ShapeError{Reason: ReasonUnknownKind, Field: "type", Detail: err.Error()}
	}

	msg := Message{Kind: kind}

	to, hasTo := raw["to"]
	switch {
	case RequiresTarget(kind):
		if !hasTo {
			return Message{}, &ShapeError{Reason: ReasonTargetRequired, Field: "to", Detail: fmt.Sprintf("required for %s messages", kind)}
		}
		target, ok := to.(string)
		if !ok || target == "" {
			return Message{}, &ShapeError{Reason: ReasonWrongFieldType, Field: "to", Detail: "must be a non-empty string"}
		}
		msg.To = target
	case hasTo:
		return Message{}, &ShapeError{Reason: ReasonTargetForbidden, Field: "to", Detail: fmt.Sprintf("must not be present for %s messages", kind)}
	}

	from, ok := raw["from"].(string)
	if !ok {
		return Message{}, &ShapeError{Reason: ReasonWrongFieldType, Field: "from", Detail: "must be a string"}
	}
	msg.From = from

	if kind == KindExecute && opts.StructuredActions {
		actions, err := toActions(raw["content"])
		if err != nil {
			return Message{}, err
		}
		msg.Actions = actions
		return msg, nil
	}

	content, ok := raw["content"].(string)
	if !ok {
		return Message{}, &ShapeError{Reason: ReasonWrongFieldType, Field: "content", Detail: fmt.Sprintf("must be a string for %s messages", kind)}
	}
	msg.Content = content
	return msg, nil
}

func toActions(v any) ([]Action, error) {
	bad := &ShapeError{Reason: ReasonWrongFieldType, Field: "content", Detail: "must be a list of action objects"}
	items, ok := v.([]any)
	if !ok {
		return nil, bad
	}
	actions := make([]Action, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, bad
		}
		actions = append(actions, Action(obj))
	}
	return actions, nil
}

// CheckFrom verifies the message was written by the expected player
func CheckFrom(m Message, expected string) error {
	if m.From == expected {
		return nil
	}
	return &ShapeError{Reason: ReasonFromMismatch, Field: "from", Detail: fmt.Sprintf("expected %q, got %q", expected, m.From)}
}

var instanceSuffix = regexp.MustCompile(`_[0-9]+$`)

// BaseRole strips the 1-based instance suffix from a node id, so
// "executor_2" becomes "executor". Ids without a numeric suffix are
// returned unchanged.
func BaseRole(id string) string {
	return instanceSuffix.ReplaceAllString(id, "")
}
