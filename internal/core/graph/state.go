package graph

// TransitionState is the live cursor over a compiled graph.
// It is mutated only by the transition engine.
type TransitionState struct {
	CurrentNode          string   `json:"current_node" msgpack:"current_node"`
	CurrentRoundNodes    []string `json:"current_round_nodes" msgpack:"current_round_nodes"`
	NonAnchorVisited     bool     `json:"non_anchor_visited" msgpack:"non_anchor_visited"`
	RoundComplete        bool     `json:"round_complete" msgpack:"round_complete"`
	TransitionsThisRound int      `json:"transitions_this_round" msgpack:"transitions_this_round"`
}

// Clone returns a deep copy
func (s TransitionState) Clone() TransitionState {
	s.CurrentRoundNodes = append([]string(nil), s.CurrentRoundNodes...)
	return s
}
