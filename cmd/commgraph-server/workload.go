package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/commgraph/commgraph/internal/adapters/transcript"
)

// workloadManager replays one transcript in a loop to generate metrics
// load. At most one workload runs at a time.
type workloadManager struct {
	s *server

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runs   int
}

func (m *workloadManager) start(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("config")
	if _, ok := m.s.file(name); !ok {
		http.Error(w, fmt.Sprintf("unknown topology config %q", name), http.StatusNotFound)
		return
	}
	rate := 200 * time.Millisecond
	if v := r.URL.Query().Get("rate_ms"); v != "" {
		if d, err := time.ParseDuration(v + "ms"); err == nil && d > 0 {
			rate = d
		}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tr, err := transcript.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		http.Error(w, "replay workload already running", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, name, tr, rate, m.done)
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "replay workload started: config=%s rate=%v\n", name, rate)
}

func (m *workloadManager) stop(w http.ResponseWriter, _ *http.Request) {
	runs := m.halt()
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "replay workload stopped after %d episodes\n", runs)
}

// halt cancels the running workload and waits for its loop to exit
func (m *workloadManager) halt() int {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func (m *workloadManager) loop(ctx context.Context, name string, tr *transcript.Transcript, rate time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.replayOnce(ctx, name, tr)
		}
	}
}

// replayOnce plays one episode and drops it from the status board, so the
// board only shows episodes in flight
func (m *workloadManager) replayOnce(ctx context.Context, name string, tr *transcript.Transcript) {
	sess, err := m.s.replaySession(ctx, name, tr)
	if err != nil {
		m.s.log.Error("Replay workload failed", "config", name, "error", err)
		return
	}
	defer sess.Close()
	defer m.s.status.Remove(sess.ID())
	if _, err := sess.Run(ctx, transcript.NewAgent(tr.Turns)); err != nil {
		m.s.log.Debug("Replay workload episode stopped early", "episode_id", sess.ID(), "error", err)
	}
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
}
