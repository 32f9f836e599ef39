package message

import (
	"errors"
	"fmt"
)

// Protocol errors
var (
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrMalformed        = errors.New("malformed message")
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyPermissions = errors.New("permission set cannot be empty")
)

// Reason classifies why a message failed shape validation
type Reason string

const (
	ReasonMissingField    Reason = "missing_field"
	ReasonUnknownKind     Reason = "unknown_kind"
	ReasonWrongFieldType  Reason = "wrong_field_type"
	ReasonTargetRequired  Reason = "target_required"
	ReasonTargetForbidden Reason = "target_forbidden"
	ReasonFromMismatch    Reason = "from_mismatch"
	ReasonNoCodeBlock     Reason = "no_code_block"
	ReasonInvalidLanguage Reason = "invalid_language"
	ReasonEmptyCodeBlock  Reason = "empty_code_block"
	ReasonInvalidJSON     Reason = "invalid_json"
	ReasonNotObject       Reason = "not_object"
)

// ShapeError reports a malformed wire message. It is always recoverable.
type ShapeError struct {
	Reason Reason
	Field  string
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed message: %s (%s): %s", e.Reason, e.Field, e.Detail)
	}
	return fmt.Sprintf("malformed message: %s: %s", e.Reason, e.Detail)
}

// Is lets errors.Is match ErrMalformed and, for unknown kinds, ErrUnknownKind
func (e *ShapeError) Is(target error) bool {
	if target == ErrMalformed {
		return true
	}
	return target == ErrUnknownKind && e.Reason == ReasonUnknownKind
}

// Direction tells whether a permission check was for sending or receiving
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// PermissionError reports a role attempting a kind outside its permission set
type PermissionError struct {
	Role      string
	Kind      Kind
	Direction Direction
	Allowed   []Kind
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q cannot %s %s messages, allowed: %s", e.Role, e.Direction, e.Kind, KindNames(e.Allowed))
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}
