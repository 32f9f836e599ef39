package message

import "fmt"

// Permissions is the immutable pair of send and receive sets attached to a role
type Permissions struct {
	send    map[Kind]struct{}
	receive map[Kind]struct{}
}

// NewPermissions builds a permission pair. Both sets must be non-empty and
// contain only known kinds.
func NewPermissions(send, receive []Kind) (Permissions, error) {
	if len(send) == 0 {
		return Permissions{}, fmt.Errorf("send: %w", ErrEmptyPermissions)
	}
	if len(receive) == 0 {
		return Permissions{}, fmt.Errorf("receive: %w", ErrEmptyPermissions)
	}
	p := Permissions{send: make(map[Kind]struct{}, len(send)), receive: make(map[Kind]struct{}, len(receive))}
	for _, k := range send {
		if !k.Valid() {
			return Permissions{}, fmt.Errorf("send: %w: %q", ErrUnknownKind, k)
		}
		p.send[k] = struct{}{}
	}
	for _, k := range receive {
		if !k.Valid() {
			return Permissions{}, fmt.Errorf("receive: %w: %q", ErrUnknownKind, k)
		}
		p.receive[k] = struct{}{}
	}
	return p, nil
}

// MustPermissions is NewPermissions for static tables and tests
func MustPermissions(send, receive []Kind) Permissions {
	p, err := NewPermissions(send, receive)
	if err != nil {
		panic(err)
	}
	return p
}

// CanSend reports whether the role may send kind k
func (p Permissions) CanSend(k Kind) bool {
	_, ok := p.send[k]
	return ok
}

// CanReceive reports whether the role may receive kind k
func (p Permissions) CanReceive(k Kind) bool {
	_, ok := p.receive[k]
	return ok
}

// Send returns the send set in declaration order
func (p Permissions) Send() []Kind {
	return ordered(p.send)
}

// Receive returns the receive set in declaration order
func (p Permissions) Receive() []Kind {
	return ordered(p.receive)
}

// IsZero reports whether the permissions were never initialised
func (p Permissions) IsZero() bool {
	return p.send == nil && p.receive == nil
}

// CheckSend returns a *PermissionError when role may not send k
func (p Permissions) CheckSend(role string, k Kind) error {
	if p.CanSend(k) {
		return nil
	}
	return &PermissionError{Role: role, Kind: k, Direction: DirectionSend, Allowed: p.Send()}
}

// CheckReceive returns a *PermissionError when role may not receive k
func (p Permissions) CheckReceive(role string, k Kind) error {
	if p.CanReceive(k) {
		return nil
	}
	return &PermissionError{Role: role, Kind: k, Direction: DirectionReceive, Allowed: p.Receive()}
}

func ordered(set map[Kind]struct{}) []Kind {
	out := make([]Kind, 0, len(set))
	for _, k := range AllKinds {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
