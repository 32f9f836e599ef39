// Package rules implements the cycle-breaking communication rule: two
// players may not trade REQUEST/RESPONSE messages indefinitely without one
// of them taking an EXECUTE action.
package rules

import (
	"log/slog"
	"sort"

	"github.com/commgraph/commgraph/internal/core/message"
)

// Config holds the rule thresholds
type Config struct {
	// CycleThreshold is the number of REQUEST/RESPONSE messages between one
	// pair after which execute-capable members are blocked.
	CycleThreshold int `yaml:"cycle_threshold" toml:"cycle_threshold" env:"CYCLE_THRESHOLD" validate:"min=1"`
	// ViolationThreshold is the number of blocked attempts after which the
	// episode aborts.
	ViolationThreshold int `yaml:"violation_threshold" toml:"violation_threshold" env:"VIOLATION_THRESHOLD" validate:"min=1"`
}

// DefaultConfig returns two round trips before blocking and three strikes
// before aborting.
func DefaultConfig() Config {
	return Config{CycleThreshold: 4, ViolationThreshold: 3}
}

type pair struct {
	A, B string
}

func pairOf(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{A: x, B: y}
}

func (p pair) involves(name string) bool {
	return p.A == name || p.B == name
}

// Tracker holds the per-episode cycle, block and violation state.
// It is not safe for concurrent use.
type Tracker struct {
	cfg            Config
	executeCapable func(name string) bool
	log            *slog.Logger

	cycles      map[pair]int
	blocked     map[string]string
	violations  map[string]int
	lastPartner map[string]string
}

// NewTracker creates a tracker. executeCapable tells whether a player may
// send EXECUTE; only such players are ever blocked.
func NewTracker(cfg Config, executeCapable func(name string) bool, log *slog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.CycleThreshold <= 0 {
		cfg.CycleThreshold = def.CycleThreshold
	}
	if cfg.ViolationThreshold <= 0 {
		cfg.ViolationThreshold = def.ViolationThreshold
	}
	if log == nil {
		log = slog.Default()
	}
	t := &Tracker{cfg: cfg, executeCapable: executeCapable, log: log}
	t.reset()
	return t
}

func (t *Tracker) reset() {
	t.cycles = make(map[pair]int)
	t.blocked = make(map[string]string)
	t.violations = make(map[string]int)
	t.lastPartner = make(map[string]string)
}

// Config returns the effective thresholds
func (t *Tracker) Config() Config {
	return t.cfg
}

func tracked(kind message.Kind) bool {
	return kind == message.KindRequest || kind == message.KindResponse
}

// RecordAndCheck runs before a message is applied. It returns a
// *BlockedError when sender is blocked from target; the error's Abort
// field is set once the violation threshold is reached.
func (t *Tracker) RecordAndCheck(sender string, kind message.Kind, target string) error {
	if !tracked(kind) || target == "" {
		return nil
	}
	if t.blocked[sender] != target {
		return nil
	}
	t.violations[sender]++
	n := t.violations[sender]
	err := &BlockedError{
		Sender:     sender,
		Target:     target,
		Violations: n,
		Threshold:  t.cfg.ViolationThreshold,
		Abort:      n >= t.cfg.ViolationThreshold,
	}
	t.log.Warn("Blocked communication attempt",
		"sender", sender, "target", target, "violations", n, "abort", err.Abort)
	return err
}

// UpdateAfterSuccess runs after a message was applied
func (t *Tracker) UpdateAfterSuccess(sender string, kind message.Kind, target string) {
	if kind == message.KindExecute {
		t.clearSender(sender)
		delete(t.violations, sender)
		return
	}
	if !tracked(kind) || target == "" {
		return
	}

	if last, ok := t.lastPartner[sender]; ok && last != target {
		t.clearSender(sender)
	}
	t.lastPartner[sender] = target

	key := pairOf(sender, target)
	t.cycles[key]++
	if t.cycles[key] < t.cfg.CycleThreshold {
		return
	}

	for _, member := range [2][2]string{{sender, target}, {target, sender}} {
		if t.executeCapable != nil && t.executeCapable(member[0]) {
			t.blocked[member[0]] = member[1]
			t.log.Info("Communication cycle blocked",
				"player", member[0], "partner", member[1], "count", t.cycles[key])
		}
	}
}

// clearSender drops the sender's block and every cycle count involving it
func (t *Tracker) clearSender(name string) {
	delete(t.blocked, name)
	for key := range t.cycles {
		if key.involves(name) {
			delete(t.cycles, key)
		}
	}
}

// CycleCount returns the shared counter for the unordered pair
func (t *Tracker) CycleCount(a, b string) int {
	return t.cycles[pairOf(a, b)]
}

// IsBlocked reports whether sender is currently blocked from target
func (t *Tracker) IsBlocked(sender, target string) bool {
	blocked, ok := t.blocked[sender]
	return ok && blocked == target
}

// BlockedTarget returns the peer sender is blocked from, if any
func (t *Tracker) BlockedTarget(sender string) (string, bool) {
	target, ok := t.blocked[sender]
	return target, ok
}

// Violations returns the sender's blocked-attempt count
func (t *Tracker) Violations(sender string) int {
	return t.violations[sender]
}

// LastPartner returns the last peer sender messaged
func (t *Tracker) LastPartner(sender string) (string, bool) {
	p, ok := t.lastPartner[sender]
	return p, ok
}

// PairCount is one serialised cycle counter
type PairCount struct {
	A     string `json:"a" msgpack:"a"`
	B     string `json:"b" msgpack:"b"`
	Count int    `json:"count" msgpack:"count"`
}

// State is the serialisable form of the tracker
type State struct {
	Cycles      []PairCount       `json:"cycle_counts" msgpack:"cycle_counts"`
	Blocked     map[string]string `json:"blocked" msgpack:"blocked"`
	Violations  map[string]int    `json:"violations" msgpack:"violations"`
	LastPartner map[string]string `json:"last_partner" msgpack:"last_partner"`
}

// Snapshot copies the tracker state. Cycle counters are sorted by pair.
func (t *Tracker) Snapshot() State {
	s := State{
		Cycles:      make([]PairCount, 0, len(t.cycles)),
		Blocked:     make(map[string]string, len(t.blocked)),
		Violations:  make(map[string]int, len(t.violations)),
		LastPartner: make(map[string]string, len(t.lastPartner)),
	}
	for k, n := range t.cycles {
		s.Cycles = append(s.Cycles, PairCount{A: k.A, B: k.B, Count: n})
	}
	sort.Slice(s.Cycles, func(i, j int) bool {
		if s.Cycles[i].A != s.Cycles[j].A {
			return s.Cycles[i].A < s.Cycles[j].A
		}
		return s.Cycles[i].B < s.Cycles[j].B
	})
	for k, v := range t.blocked {
		s.Blocked[k] = v
	}
	for k, v := range t.violations {
		s.Violations[k] = v
	}
	for k, v := range t.lastPartner {
		s.LastPartner[k] = v
	}
	return s
}

// Restore replaces the tracker state with s
func (t *Tracker) Restore(s State) {
	t.reset()
	for _, pc := range s.Cycles {
		t.cycles[pairOf(pc.A, pc.B)] = pc.Count
	}
	for k, v := range s.Blocked {
		t.blocked[k] = v
	}
	for k, v := range s.Violations {
		t.violations[k] = v
	}
	for k, v := range s.LastPartner {
		t.lastPartner[k] = v
	}
}
