package services

import (
	"fmt"
	"sort"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/core/checkpoint"
)

// Stats counts requests, parsed turns and violations per player and per
// round. It is owned by a single episode.
type Stats struct {
	players map[string]*checkpoint.Counters
	rounds  map[int]map[string]*checkpoint.Counters
}

// NewStats creates empty statistics
func NewStats() *Stats {
	return &Stats{
		players: make(map[string]*checkpoint.Counters),
		rounds:  make(map[int]map[string]*checkpoint.Counters),
	}
}

func (s *Stats) counters(player string, round int) (*checkpoint.Counters, *checkpoint.Counters) {
	p, ok := s.players[player]
	if !ok {
		p = &checkpoint.Counters{}
		s.players[player] = p
	}
	rp, ok := s.rounds[round]
	if !ok {
		rp = make(map[string]*checkpoint.Counters)
		s.rounds[round] = rp
	}
	r, ok := rp[player]
	if !ok {
		r = &checkpoint.Counters{}
		rp[player] = r
	}
	return p, r
}

// RecordRequest counts a turn handed to the player
func (s *Stats) RecordRequest(player string, round int) {
	p, r := s.counters(player, round)
	p.Requests++
	r.Requests++
}

// RecordParsed counts a turn that passed validation and was applied, and
// clears the player's violation streak
func (s *Stats) RecordParsed(player string, round int) {
	p, r := s.counters(player, round)
	p.Parsed++
	r.Parsed++
	p.ViolatedStreak = 0
	r.ViolatedStreak = 0
}

// RecordViolation counts a failed turn
func (s *Stats) RecordViolation(player string, round int) checkpoint.Counters {
	p, r := s.counters(player, round)
	p.Violated++
	p.ViolatedStreak++
	r.Violated++
	r.ViolatedStreak++
	return *p
}

// CheckLimits returns an abort when the player's streak or total has
// reached its cap
func (s *Stats) CheckLimits(player string, limits dto.Limits) *dto.AbortError {
	p, ok := s.players[player]
	if !ok {
		return nil
	}
	if p.ViolatedStreak >= limits.ConsecutiveViolationCap {
		return &dto.AbortError{
			Reason: dto.AbortConsecutiveViolations,
			Detail: fmt.Sprintf("player %s exceeded consecutive violation limit (%d/%d)", player, p.ViolatedStreak, limits.ConsecutiveViolationCap),
		}
	}
	if p.Violated >= limits.TotalViolationCap {
		return &dto.AbortError{
			Reason: dto.AbortTotalViolations,
			Detail: fmt.Sprintf("player %s exceeded total violation limit (%d/%d)", player, p.Violated, limits.TotalViolationCap),
		}
	}
	return nil
}

// Player returns a copy of the player's counters
func (s *Stats) Player(player string) checkpoint.Counters {
	if p, ok := s.players[player]; ok {
		return *p
	}
	return checkpoint.Counters{}
}

// Snapshot copies all counters. Rounds are sorted ascending.
func (s *Stats) Snapshot() (map[string]checkpoint.Counters, []checkpoint.RoundCounters) {
	players := make(map[string]checkpoint.Counters, len(s.players))
	for k, v := range s.players {
		players[k] = *v
	}
	rounds := make([]checkpoint.RoundCounters, 0, len(s.rounds))
	for round, rp := range s.rounds {
		rc := checkpoint.RoundCounters{Round: round, Players: make(map[string]checkpoint.Counters, len(rp))}
		for k, v := range rp {
			rc.Players[k] = *v
		}
		rounds = append(rounds, rc)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Round < rounds[j].Round })
	return players, rounds
}

// Restore replaces all counters
func (s *Stats) Restore(players map[string]checkpoint.Counters, rounds []checkpoint.RoundCounters) {
	s.players = make(map[string]*checkpoint.Counters, len(players))
	s.rounds = make(map[int]map[string]*checkpoint.Counters, len(rounds))
	for k, v := range players {
		c := v
		s.players[k] = &c
	}
	for _, rc := range rounds {
		rp := make(map[string]*checkpoint.Counters, len(rc.Players))
		for k, v := range rc.Players {
			c := v
			rp[k] = &c
		}
		s.rounds[rc.Round] = rp
	}
}
