package services

import (
	"sort"
	"sync"

	"github.com/commgraph/commgraph/internal/app/dto"
)

// StatusBoard keeps the latest status of every episode a process is
// running, for diagnostics. Safe for concurrent use.
// PRINCIPLES:
// - SRP: Read model only, episodes publish and readers query
// - KISS: Simple in-memory storage
type StatusBoard struct {
	mu       sync.RWMutex
	statuses map[string]dto.EpisodeStatus
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{statuses: make(map[string]dto.EpisodeStatus)}
}

// Publish records the latest status of an episode
func (b *StatusBoard) Publish(status dto.EpisodeStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[status.EpisodeID] = status
}

// Get returns the latest status of an episode
func (b *StatusBoard) Get(episodeID string) (dto.EpisodeStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.statuses[episodeID]
	return s, ok
}

// List returns every status ordered by episode ID
func (b *StatusBoard) List() []dto.EpisodeStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]dto.EpisodeStatus, 0, len(b.statuses))
	for _, s := range b.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpisodeID < out[j].EpisodeID })
	return out
}

// Remove forgets an episode
func (b *StatusBoard) Remove(episodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.statuses, episodeID)
}
