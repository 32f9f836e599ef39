// Package graph defines domain-specific errors
package graph

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Graph errors
	ErrNoAnchor         = errors.New("no anchor node set")
	ErrInvalidAnchor    = errors.New("anchor must be a player node")
	ErrNoStartEdge      = errors.New("no standard edge leaves START")
	ErrAnchorNotOnStart = errors.New("anchor is not reachable from START by a standard edge")
	ErrInvalidSequence  = errors.New("round-robin sequence must list player nodes")

	// Node errors
	ErrNilPlayer      = errors.New("player cannot be nil")
	ErrInvalidNodeID  = errors.New("invalid node ID")
	ErrReservedNodeID = errors.New("node ID is reserved")
	ErrNodeNotFound   = errors.New("node not found")
	ErrDuplicateNode  = errors.New("duplicate node ID")

	// Edge errors
	ErrDuplicateStandardEdge = errors.New("standard edge already exists between these nodes")
	ErrMissingCondition      = errors.New("decision edge requires a condition")
	ErrInvalidCondition      = errors.New("decision edge condition has an unknown message kind")
	ErrEdgeIntoStart         = errors.New("edges cannot enter START")
	ErrEdgeFromEnd           = errors.New("edges cannot leave END")
)
