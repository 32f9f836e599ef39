package checkpoint

import "errors"

var (
	ErrInvalidCheckpointID = errors.New("invalid checkpoint ID")
	ErrInvalidEpisodeID    = errors.New("checkpoint has no episode ID")
	ErrNilState            = errors.New("checkpoint has no episode state")
	ErrCheckpointNotFound  = errors.New("checkpoint not found")

	// filter
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")
)
