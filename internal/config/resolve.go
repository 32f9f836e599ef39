package config

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/commgraph/commgraph/internal/core/topology"
)

// DefaultTaskType is the task_types entry used when the requested task type
// has no entry of its own
const DefaultTaskType = "default"

// ErrNoParticipants is returned when no level of the file assigns participants
var ErrNoParticipants = errors.New("no participant assignments found")

// Selection names the task an episode is built for. Both fields are
// optional.
type Selection struct {
	Category string
	TaskType string
}

// ResolveParticipants picks the most specific participant assignment:
// the task type, then the category's default task type, then the category,
// then the file default.
func (f *File) ResolveParticipants(sel Selection) (topology.Roster, error) {
	if c, ok := f.CategoryParticipantAssignments[sel.Category]; ok && sel.Category != "" {
		if sel.TaskType != "" && len(c.TaskTypes) > 0 {
			if t, ok := c.TaskTypes[sel.TaskType]; ok && len(t.Participants) > 0 {
				return t.Participants, nil
			}
			if t, ok := c.TaskTypes[DefaultTaskType]; ok && len(t.Participants) > 0 {
				return t.Participants, nil
			}
		}
		if len(c.Participants) > 0 {
			return c.Participants, nil
		}
	}
	if len(f.DefaultParticipantAssignments) > 0 {
		return f.DefaultParticipantAssignments, nil
	}
	return nil, configError(f.source, ErrNoParticipants,
		fmt.Sprintf("no participants for category %q task type %q and no default_participant_assignments", sel.Category, sel.TaskType))
}

// ResolveAnchor picks the anchor setting the same way, without the default
// task type step. An unset mode means random selection.
func (f *File) ResolveAnchor(sel Selection) topology.AnchorConfig {
	if c, ok := f.CategoryParticipantAssignments[sel.Category]; ok && sel.Category != "" {
		if t, ok := c.TaskTypes[sel.TaskType]; ok && sel.TaskType != "" && t.AnchorSelectionMode != "" {
			return anchorConfig(t.AnchorSelectionMode, t.AnchorNodeConfig)
		}
		if c.AnchorSelectionMode != "" {
			return anchorConfig(c.AnchorSelectionMode, c.AnchorNodeConfig)
		}
	}
	return anchorConfig(f.AnchorSelectionMode, f.DefaultAnchorNodeConfig)
}

func anchorConfig(mode string, node *AnchorNode) topology.AnchorConfig {
	cfg := topology.AnchorConfig{Mode: topology.AnchorMode(mode)}
	if cfg.Mode == "" {
		cfg.Mode = topology.AnchorRandom
	}
	if node != nil {
		cfg.Role, cfg.Domain = node.Role, node.Domain
	}
	return cfg
}

// Compile resolves the selection and compiles the topology. rng drives
// random anchor selection; nil uses the global source.
func (f *File) Compile(sel Selection, rng *rand.Rand) (*topology.Description, error) {
	roster, err := f.ResolveParticipants(sel)
	if err != nil {
		return nil, err
	}
	roles, err := f.Roles()
	if err != nil {
		return nil, err
	}
	compiler, err := topology.New(f.Type())
	if err != nil {
		return nil, configError(f.source, err)
	}
	desc, err := compiler.Compile(roster, topology.CompileOptions{
		Roles:  roles,
		Anchor: f.ResolveAnchor(sel),
		Rand:   rng,
	})
	if err != nil {
		return nil, configError(f.source, err, err.Error())
	}
	return desc, nil
}

// Domains returns the strict domain resolver of the file
func (f *File) Domains() Domains {
	return Domains(f.DomainDefinitions)
}
