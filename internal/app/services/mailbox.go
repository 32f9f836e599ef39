package services

import (
	"context"
	"sync"

	"github.com/commgraph/commgraph/internal/app/dto"
)

// Mailbox holds delivered messages until their recipient's next turn.
// Messages without a recipient are shown once to every player.
// PRINCIPLES:
// - SRP: Buffers conversation, knows nothing about turns
// - KISS: Per-player slices plus a shared broadcast log
type Mailbox struct {
	mu        sync.Mutex
	inbox     map[string][]dto.Delivery
	broadcast []dto.Delivery
	seen      map[string]int
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{
		inbox: make(map[string][]dto.Delivery),
		seen:  make(map[string]int),
	}
}

// Deliver implements the conversation sink
func (m *Mailbox) Deliver(_ context.Context, d dto.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.To == "" {
		m.broadcast = append(m.broadcast, d)
		return nil
	}
	m.inbox[d.To] = append(m.inbox[d.To], d)
	return nil
}

// Drain returns and forgets everything addressed to player, followed by
// broadcasts it has not seen, excluding its own
func (m *Mailbox) Drain(player string) []dto.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.inbox[player]
	delete(m.inbox, player)
	for _, d := range m.broadcast[m.seen[player]:] {
		if d.From != player {
			out = append(out, d)
		}
	}
	m.seen[player] = len(m.broadcast)
	return out
}

// Pending returns how many direct messages wait for player
func (m *Mailbox) Pending(player string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbox[player])
}
