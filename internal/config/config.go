// Package config loads topology configuration files and runtime settings.
//
// A topology file declares the role definitions, the domain definitions and
// the participant assignments of one topology, with optional overrides per
// task category and task type. Files are YAML or TOML, chosen by extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
	"github.com/commgraph/commgraph/internal/core/topology"
)

// Format is a configuration file syntax
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the syntax from a file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported config extension %q, use .yaml, .yml or .toml", filepath.Ext(path))
}

// Permissions lists the message kinds a role may send and receive
type Permissions struct {
	Send    []string `yaml:"send" toml:"send" validate:"required,min=1,dive,message_kind"`
	Receive []string `yaml:"receive" toml:"receive" validate:"required,min=1,dive,message_kind"`
}

// RoleDefinition is the template every instance of a role is built from
type RoleDefinition struct {
	HandlerType        string      `yaml:"handler_type" toml:"handler_type" validate:"omitempty,oneof=standard environment"`
	MessagePermissions Permissions `yaml:"message_permissions" toml:"message_permissions"`
	AllowedComponents  []string    `yaml:"allowed_components" toml:"allowed_components"`
	ReceivesGoal       bool        `yaml:"receives_goal" toml:"receives_goal"`
}

// AnchorNode names the exact participant a fixed anchor must be
type AnchorNode struct {
	Role   string `yaml:"role" toml:"role"`
	Domain string `yaml:"domain" toml:"domain"`
}

// TaskTypeAssignment overrides participants and anchor for one task type
type TaskTypeAssignment struct {
	Participants        topology.Roster `yaml:"participants" toml:"participants" validate:"dive"`
	AnchorSelectionMode string          `yaml:"anchor_selection_mode" toml:"anchor_selection_mode" validate:"omitempty,anchor_mode"`
	AnchorNodeConfig    *AnchorNode     `yaml:"anchor_node_config" toml:"anchor_node_config"`
}

// CategoryAssignment overrides participants and anchor for one task
// category, optionally refined per task type
type CategoryAssignment struct {
	Participants        topology.Roster               `yaml:"participants" toml:"participants" validate:"dive"`
	TaskTypes           map[string]TaskTypeAssignment `yaml:"task_types" toml:"task_types" validate:"dive"`
	AnchorSelectionMode string                        `yaml:"anchor_selection_mode" toml:"anchor_selection_mode" validate:"omitempty,anchor_mode"`
	AnchorNodeConfig    *AnchorNode                   `yaml:"anchor_node_config" toml:"anchor_node_config"`
}

// File is one topology configuration file
type File struct {
	TopologyType                   string                        `yaml:"topology_type" toml:"topology_type" validate:"required,topology_type"`
	RoleDefinitions                map[string]RoleDefinition     `yaml:"role_definitions" toml:"role_definitions" validate:"required,min=1,dive"`
	DomainDefinitions              map[string]DomainDefinition   `yaml:"domain_definitions" toml:"domain_definitions" validate:"required,min=1,dive"`
	DefaultParticipantAssignments  topology.Roster               `yaml:"default_participant_assignments" toml:"default_participant_assignments" validate:"dive"`
	CategoryParticipantAssignments map[string]CategoryAssignment `yaml:"category_participant_assignments" toml:"category_participant_assignments" validate:"dive"`
	AnchorSelectionMode            string                        `yaml:"anchor_selection_mode" toml:"anchor_selection_mode" validate:"omitempty,anchor_mode"`
	DefaultAnchorNodeConfig        *AnchorNode                   `yaml:"default_anchor_node_config" toml:"default_anchor_node_config"`

	source string
}

// Load reads, decodes and validates a topology file
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, configError(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError(path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Source = path
		}
		return nil, err
	}
	f.source = path
	return f, nil
}

// Parse decodes and validates a topology file body
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, configError("", fmt.Errorf("decode yaml: %w", err))
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, configError("", fmt.Errorf("decode toml: %w", err))
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, configError("", nil, "unknown keys: "+strings.Join(keys, ", "))
		}
	default:
		return nil, configError("", fmt.Errorf("unknown format %q", format))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the whole file: field shapes, anchor settings at every
// level and that every referenced domain is defined
func (f *File) Validate() error {
	problems := structProblems(f)
	if len(problems) > 0 {
		return configError(f.source, nil, problems...)
	}

	problems = append(problems, f.anchorProblems()...)
	problems = append(problems, f.domainProblems()...)
	problems = append(problems, f.roleProblems()...)
	if len(problems) > 0 {
		return configError(f.source, nil, problems...)
	}
	return nil
}

func (f *File) anchorProblems() []string {
	var out []string
	check := func(where, mode string, node *AnchorNode) {
		if mode != string(topology.AnchorFixed) {
			return
		}
		if node == nil || node.Role == "" || node.Domain == "" {
			out = append(out, where+": fixed anchor selection requires anchor_node_config with role and domain")
		}
	}
	check("default", f.AnchorSelectionMode, f.DefaultAnchorNodeConfig)
	for _, cat := range sortedKeys(f.CategoryParticipantAssignments) {
		c := f.CategoryParticipantAssignments[cat]
		check("category "+cat, c.AnchorSelectionMode, c.AnchorNodeConfig)
		for _, tt := range sortedKeys(c.TaskTypes) {
			t := c.TaskTypes[tt]
			check("category "+cat+" task type "+tt, t.AnchorSelectionMode, t.AnchorNodeConfig)
		}
	}
	return out
}

// rosters returns every participant assignment in the file, labelled
func (f *File) rosters() map[string]topology.Roster {
	out := map[string]topology.Roster{}
	if f.DefaultParticipantAssignments != nil {
		out["default_participant_assignments"] = f.DefaultParticipantAssignments
	}
	for cat, c := range f.CategoryParticipantAssignments {
		if c.Participants != nil {
			out["category "+cat] = c.Participants
		}
		for tt, t := range c.TaskTypes {
			if t.Participants != nil {
				out["category "+cat+" task type "+tt] = t.Participants
			}
		}
	}
	return out
}

// domainProblems reports assigned domains with no definition
func (f *File) domainProblems() []string {
	domains := Domains(f.DomainDefinitions)
	var out []string
	rosters := f.rosters()
	for _, where := range sortedKeys(rosters) {
		for _, role := range sortedKeys(rosters[where]) {
			if err := domains.Check(rosters[where][role].Domains...); err != nil {
				out = append(out, fmt.Sprintf("%s role %s: %v", where, role, err))
			}
		}
	}
	return out
}

// roleProblems reports assigned roles with no definition
func (f *File) roleProblems() []string {
	var out []string
	rosters := f.rosters()
	for _, where := range sortedKeys(rosters) {
		for _, role := range sortedKeys(rosters[where]) {
			if _, ok := f.RoleDefinitions[role]; !ok {
				out = append(out, fmt.Sprintf("%s: role %q has no role_definitions entry", where, role))
			}
		}
	}
	return out
}

// Type returns the parsed topology type
func (f *File) Type() topology.Type {
	t, _ := topology.ParseType(f.TopologyType)
	return t
}

// Roles converts the role definitions into player definitions
func (f *File) Roles() (map[string]player.Definition, error) {
	out := make(map[string]player.Definition, len(f.RoleDefinitions))
	for _, name := range sortedKeys(f.RoleDefinitions) {
		rd := f.RoleDefinitions[name]
		send, err := kindsFromConfig(rd.MessagePermissions.Send)
		if err != nil {
			return nil, configError(f.source, err, fmt.Sprintf("role %s send: %v", name, err))
		}
		receive, err := kindsFromConfig(rd.MessagePermissions.Receive)
		if err != nil {
			return nil, configError(f.source, err, fmt.Sprintf("role %s receive: %v", name, err))
		}
		perms, err := message.NewPermissions(send, receive)
		if err != nil {
			return nil, configError(f.source, err, fmt.Sprintf("role %s: %v", name, err))
		}
		handler := player.Handler(rd.HandlerType)
		if handler == "" {
			handler = player.HandlerStandard
		}
		def := player.Definition{
			Role:              name,
			Handler:           handler,
			Permissions:       perms,
			AllowedComponents: rd.AllowedComponents,
			ReceivesGoal:      rd.ReceivesGoal,
		}
		if err := def.Validate(); err != nil {
			return nil, configError(f.source, err, fmt.Sprintf("role %s: %v", name, err))
		}
		out[name] = def
	}
	return out, nil
}

func kindsFromConfig(names []string) ([]message.Kind, error) {
	out := make([]message.Kind, 0, len(names))
	for _, n := range names {
		k, err := message.KindFromConfig(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
