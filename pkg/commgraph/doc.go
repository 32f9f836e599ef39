// Package commgraph provides a public façade for running multi-agent
// episodes without importing internal packages. A Session compiles a
// topology file, wires the orchestrator to a mailbox, a status board and a
// checkpoint store, and plays turns against an Agent.
package commgraph
