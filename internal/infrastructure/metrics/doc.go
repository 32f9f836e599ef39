// Package metrics exposes expvar-published counters for the turn engine:
// turns by outcome, transitions, completed rounds, violations by class,
// communication blocks and aborts by reason. It is consumed by
// commgraph-server for the /debug/vars and /metrics endpoints.
package metrics
