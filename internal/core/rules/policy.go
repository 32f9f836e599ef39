package rules

import "strings"

// Policy decides whether the rule applies to an episode
type Policy struct {
	Disabled          bool     `yaml:"disabled" toml:"disabled" env:"RULES_DISABLED"`
	ExcludeTopologies []string `yaml:"exclude_topologies" toml:"exclude_topologies" env:"RULES_EXCLUDE_TOPOLOGIES" envSeparator:","`
}

// DefaultPolicy enables the rule everywhere except the single-agent topology
func DefaultPolicy() Policy {
	return Policy{ExcludeTopologies: []string{"single"}}
}

// Applies reports whether the rule is enforced for the given topology
func (p Policy) Applies(topology string) bool {
	if p.Disabled {
		return false
	}
	for _, t := range p.ExcludeTopologies {
		if strings.EqualFold(t, topology) {
			return false
		}
	}
	return true
}
