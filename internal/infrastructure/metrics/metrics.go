package metrics

import (
	"expvar"
	"fmt"
	"io"
	"sort"
)

// Turn metrics keyed by outcome, violation class and abort reason.
var (
	turnsTotal      = expvar.NewMap("commgraph_turns_total")
	violationsTotal = expvar.NewMap("commgraph_violations_total")
	abortsTotal     = expvar.NewMap("commgraph_aborts_total")
	messagesTotal   = expvar.NewMap("commgraph_messages_total")
)

// Engine metrics.
var (
	transitionsTotal = new(expvar.Int)
	roundsTotal      = new(expvar.Int)
	blocksTotal      = new(expvar.Int)
	episodesActive   = new(expvar.Int)
	checkpointsTotal = new(expvar.Int)
)

func init() {
	expvar.Publish("commgraph_transitions_total", transitionsTotal)
	expvar.Publish("commgraph_rounds_completed_total", roundsTotal)
	expvar.Publish("commgraph_communication_blocks_total", blocksTotal)
	expvar.Publish("commgraph_episodes_active", episodesActive)
	expvar.Publish("commgraph_checkpoints_total", checkpointsTotal)
}

// Turn helpers
func IncTurn(status string)         { turnsTotal.Add(status, 1) }
func IncViolation(class string)     { violationsTotal.Add(class, 1) }
func IncAbort(reason string)        { abortsTotal.Add(reason, 1) }
func IncMessage(kind string)        { messagesTotal.Add(kind, 1) }
func IncTransitions()               { transitionsTotal.Add(1) }
func IncRounds()                    { roundsTotal.Add(1) }
func IncBlocks()                    { blocksTotal.Add(1) }
func IncCheckpoints()               { checkpointsTotal.Add(1) }
func AddActiveEpisodes(delta int64) { episodesActive.Add(delta) }

// Names lists the published variable names, for exporters
func Names() []string {
	return []string{
		"commgraph_turns_total",
		"commgraph_violations_total",
		"commgraph_aborts_total",
		"commgraph_messages_total",
		"commgraph_transitions_total",
		"commgraph_rounds_completed_total",
		"commgraph_communication_blocks_total",
		"commgraph_episodes_active",
		"commgraph_checkpoints_total",
	}
}

// labels names the key of each map variable in the text exposition
var labels = map[string]string{
	"commgraph_turns_total":      "status",
	"commgraph_violations_total": "class",
	"commgraph_aborts_total":     "reason",
	"commgraph_messages_total":   "kind",
}

// WritePrometheus renders every variable in the Prometheus text format.
// Map variables become one labelled sample per key.
func WritePrometheus(w io.Writer) error {
	for _, name := range Names() {
		switch v := expvar.Get(name).(type) {
		case *expvar.Int:
			if _, err := fmt.Fprintf(w, "# TYPE %s %s\n%s %d\n", name, kindOf(name), name, v.Value()); err != nil {
				return err
			}
		case *expvar.Map:
			if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", name); err != nil {
				return err
			}
			var keys []string
			v.Do(func(kv expvar.KeyValue) { keys = append(keys, kv.Key) })
			sort.Strings(keys)
			for _, k := range keys {
				if _, err := fmt.Fprintf(w, "%s{%s=%q} %s\n", name, labels[name], k, v.Get(k).String()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func kindOf(name string) string {
	if name == "commgraph_episodes_active" {
		return "gauge"
	}
	return "counter"
}
