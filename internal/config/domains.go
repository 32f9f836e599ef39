package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDomain is returned for a domain with no definition
var ErrUnknownDomain = errors.New("domain is not defined")

// DomainDefinition describes a domain to its own members and to the team
type DomainDefinition struct {
	SelfDescription string `yaml:"self_description" toml:"self_description" validate:"required"`
	TeamDescription string `yaml:"team_description" toml:"team_description" validate:"required"`
}

// Context selects which description of a domain is wanted
type Context string

const (
	ContextSelf Context = "self"
	ContextTeam Context = "team"
)

// ResolvedDomain is a domain name with the description for one context
type ResolvedDomain struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Domains resolves domain names strictly: there is no fallback description
type Domains map[string]DomainDefinition

// Names returns the defined domain names, sorted
func (d Domains) Names() []string {
	return sortedKeys(d)
}

// Check returns an error naming the first undefined domain
func (d Domains) Check(names ...string) error {
	for _, n := range names {
		if _, ok := d[n]; !ok {
			return fmt.Errorf("%w: %q, available: %s", ErrUnknownDomain, n, strings.Join(d.Names(), ", "))
		}
	}
	return nil
}

// Resolve returns the description of name for the given context
func (d Domains) Resolve(name string, ctx Context) (ResolvedDomain, error) {
	def, ok := d[name]
	if !ok {
		return ResolvedDomain{}, fmt.Errorf("%w: %q, available: %s", ErrUnknownDomain, name, strings.Join(d.Names(), ", "))
	}
	switch ctx {
	case ContextSelf:
		return ResolvedDomain{Name: name, Description: def.SelfDescription}, nil
	case ContextTeam:
		return ResolvedDomain{Name: name, Description: def.TeamDescription}, nil
	}
	return ResolvedDomain{}, fmt.Errorf("invalid domain context %q, must be self or team", ctx)
}

// ResolveAll resolves several names, failing on the first unknown one
func (d Domains) ResolveAll(names []string, ctx Context) ([]ResolvedDomain, error) {
	out := make([]ResolvedDomain, 0, len(names))
	for _, n := range names {
		r, err := d.Resolve(n, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Team resolves the team description of every distinct domain among the
// given ones, in name order
func (d Domains) Team(names []string) ([]ResolvedDomain, error) {
	seen := make(map[string]struct{}, len(names))
	distinct := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			distinct = append(distinct, n)
		}
	}
	sort.Strings(distinct)
	return d.ResolveAll(distinct, ContextTeam)
}
