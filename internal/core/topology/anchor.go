package topology

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// AnchorMode selects how an anchor node is chosen
type AnchorMode string

const (
	AnchorFixed  AnchorMode = "fixed"
	AnchorRandom AnchorMode = "random"
)

// AnchorConfig is the anchor selection setting. Fixed mode names the exact
// role and domain of the anchor.
type AnchorConfig struct {
	Mode   AnchorMode `json:"mode" yaml:"mode" toml:"mode"`
	Role   string     `json:"role,omitempty" yaml:"role" toml:"role"`
	Domain string     `json:"domain,omitempty" yaml:"domain" toml:"domain"`
}

// Validate checks the anchor setting is self-consistent
func (c AnchorConfig) Validate() error {
	switch c.Mode {
	case AnchorRandom:
		return nil
	case AnchorFixed:
		if c.Role == "" || c.Domain == "" {
			return fmt.Errorf("%w: fixed mode requires both role and domain", ErrInvalidAnchorConfig)
		}
		return nil
	}
	return fmt.Errorf("%w: mode %q, must be fixed or random", ErrInvalidAnchorConfig, c.Mode)
}

// SelectAnchor picks the anchor among compiled instances. Fixed mode never
// falls back: a missing (role, domain) pair is an error listing every
// available combination.
func SelectAnchor(t Type, cfg AnchorConfig, instances []instance, rng *rand.Rand) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", &ValidationError{Topology: t, Reason: err.Error(), Err: err}
	}
	if len(instances) == 0 {
		return "", invalid(t, "no participants to anchor on")
	}

	if cfg.Mode == AnchorRandom {
		var i int
		if rng != nil {
			i = rng.IntN(len(instances))
		} else {
			i = rand.IntN(len(instances))
		}
		return instances[i].NodeID, nil
	}

	for _, in := range instances {
		if in.Role == cfg.Role && in.Domain == cfg.Domain {
			return in.NodeID, nil
		}
	}
	combos := make([]string, 0, len(instances))
	for _, in := range instances {
		combos = append(combos, fmt.Sprintf("(%s, %s)", in.Role, in.Domain))
	}
	sort.Strings(combos)
	reason := fmt.Sprintf("no participant with role=%q and domain=%q for fixed anchor, available combinations: %s",
		cfg.Role, cfg.Domain, strings.Join(combos, ", "))
	return "", &ValidationError{Topology: t, Reason: reason, Err: ErrAnchorNotFound}
}
