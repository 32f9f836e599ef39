// Package player defines the single, data-driven participant type.
// Roles differ only by the permissions and handler recorded on the value.
package player

import (
	"errors"
	"fmt"

	"github.com/commgraph/commgraph/internal/core/message"
)

// Handler selects how a player's turns are serviced
type Handler string

const (
	// HandlerStandard players talk to other players only
	HandlerStandard Handler = "standard"
	// HandlerEnvironment players also receive environment observations
	HandlerEnvironment Handler = "environment"
)

// Errors
var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrInvalidHandler = errors.New("invalid handler")
)

// Definition is the per-role template every instance of a role is built from
type Definition struct {
	Role              string
	Handler           Handler
	Permissions       message.Permissions
	AllowedComponents []string
	ReceivesGoal      bool
}

// Validate checks a role definition
func (d Definition) Validate() error {
	if d.Role == "" {
		return ErrInvalidRole
	}
	if d.Handler != HandlerStandard && d.Handler != HandlerEnvironment {
		return fmt.Errorf("%w: %q for role %s", ErrInvalidHandler, d.Handler, d.Role)
	}
	if d.Permissions.IsZero() {
		return fmt.Errorf("%w: role %s has no permissions", message.ErrEmptyPermissions, d.Role)
	}
	return nil
}

// CanExecute reports whether instances of this role may send EXECUTE
func (d Definition) CanExecute() bool {
	return d.Permissions.CanSend(message.KindExecute)
}

// Player is one participant instance, bound to a graph node
type Player struct {
	// Name is the node id, which is also the identity agents use in
	// the "from" and "to" fields.
	Name              string
	Role              string
	Domain            string
	Handler           Handler
	Permissions       message.Permissions
	AllowedComponents []string
	ReceivesGoal      bool
}

// New instantiates a player from a role definition
func New(name, domain string, def Definition) *Player {
	return &Player{
		Name:              name,
		Role:              def.Role,
		Domain:            domain,
		Handler:           def.Handler,
		Permissions:       def.Permissions,
		AllowedComponents: append([]string(nil), def.AllowedComponents...),
		ReceivesGoal:      def.ReceivesGoal,
	}
}

// CanExecute reports whether the player may send EXECUTE
func (p *Player) CanExecute() bool {
	return p.Permissions.CanSend(message.KindExecute)
}

// CheckSend validates an outgoing kind against the player's permissions
func (p *Player) CheckSend(k message.Kind) error {
	return p.Permissions.CheckSend(p.Role, k)
}

// CheckReceive validates an incoming kind against the player's permissions
func (p *Player) CheckReceive(k message.Kind) error {
	return p.Permissions.CheckReceive(p.Role, k)
}

func (p *Player) String() string {
	return fmt.Sprintf("%s(%s/%s)", p.Name, p.Role, p.Domain)
}
