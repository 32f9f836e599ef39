// Package memory provides an in-process checkpoint store
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/pkg/serialization"
)

// Saver implements checkpoint.Saver with thread-safe in-memory storage.
// Checkpoints are stored encoded so callers never share state with the store.
// PRINCIPLES:
// - KISS: Simple map with a single lock
// - SRP: Single responsibility for in-memory checkpoint storage
// - DIP: Implements checkpoint.Saver interface
type Saver struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	pipeline   *serialization.Pipeline
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// Config holds configuration for Saver
type Config struct {
	TTL             time.Duration           // Zero keeps checkpoints forever
	MaxEntries      int                     // Oldest checkpoints are evicted past this count
	CleanupInterval time.Duration           // Zero disables background cleanup
	Pipeline        *serialization.Pipeline // Defaults to msgpack+zstd
}

type entry struct {
	id        string
	episodeID string
	timestamp time.Time
	expiresAt time.Time
	data      []byte
}

// NewSaver creates a new in-memory checkpoint saver
func NewSaver(cfg Config) *Saver {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = serialization.Default()
	}
	s := &Saver{
		entries:    make(map[string]*entry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		pipeline:   cfg.Pipeline,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go s.cleanupLoop(cfg.CleanupInterval)
	}
	return s
}

// Default creates a saver without TTL or background cleanup
func Default() *Saver {
	return NewSaver(Config{})
}

// Save stores a checkpoint, replacing one with the same ID
func (s *Saver) Save(_ context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}
	data, err := s.pipeline.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint serialization failed: %w", err)
	}

	e := &entry{id: cp.ID, episodeID: cp.EpisodeID, timestamp: cp.Timestamp, data: data}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cp.ID] = e
	s.evictLocked()
	return nil
}

// Load retrieves a checkpoint by ID
func (s *Saver) Load(_ context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return s.decode(e)
}

// List returns checkpoints matching the filter, newest first
func (s *Saver) List(_ context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.RLock()
	matched := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if s.expired(e) {
			continue
		}
		if filter.EpisodeID != "" && e.episodeID != filter.EpisodeID {
			continue
		}
		if filter.Since != nil && !e.timestamp.After(*filter.Since) {
			continue
		}
		if filter.Before != nil && !e.timestamp.Before(*filter.Before) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*checkpoint.Checkpoint{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*checkpoint.Checkpoint, 0, len(matched))
	for _, e := range matched {
		cp, err := s.decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes a checkpoint by ID
func (s *Saver) Delete(_ context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return checkpoint.ErrCheckpointNotFound
	}
	delete(s.entries, id)
	return nil
}

// Stats reports memory usage of the store
type Stats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Stats returns the number of stored checkpoints and their encoded size
func (s *Saver) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Count: len(s.entries)}
	for _, e := range s.entries {
		st.Bytes += int64(len(e.data))
	}
	return st
}

// Close stops the cleanup goroutine
func (s *Saver) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *Saver) decode(e *entry) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	if err := s.pipeline.Unmarshal(e.data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint deserialization failed: %w", err)
	}
	return &cp, nil
}

func (s *Saver) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// evictLocked drops the oldest checkpoints past maxEntries. Caller holds mu.
func (s *Saver) evictLocked() {
	if len(s.entries) <= s.maxEntries {
		return
	}
	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sortNewestFirst(all)
	for _, e := range all[s.maxEntries:] {
		delete(s.entries, e.id)
	}
}

func (s *Saver) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Saver) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
		}
	}
}

func sortNewestFirst(entries []*entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].timestamp.Equal(entries[j].timestamp) {
			return entries[i].timestamp.After(entries[j].timestamp)
		}
		return entries[i].id > entries[j].id
	})
}
