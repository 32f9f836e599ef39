package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	graphrepo "github.com/commgraph/commgraph/internal/adapters/repository/graph"
	"github.com/commgraph/commgraph/internal/adapters/transcript"
	"github.com/commgraph/commgraph/internal/app/services"
	"github.com/commgraph/commgraph/internal/config"
	"github.com/commgraph/commgraph/internal/core/topology"
	"github.com/commgraph/commgraph/internal/infrastructure/metrics"
	"github.com/commgraph/commgraph/pkg/commgraph"
)

// maxTranscriptBytes bounds a replay request body
const maxTranscriptBytes = 1 << 20

// server exposes compiled topologies, episode statuses and metrics
type server struct {
	settings config.Settings
	graphs   *graphrepo.InMemoryDescriptionRepository
	status   *services.StatusBoard
	log      *slog.Logger

	mu    sync.RWMutex
	files map[string]*config.File

	workload *workloadManager
}

func newServer(settings config.Settings, log *slog.Logger) *server {
	s := &server{
		settings: settings,
		graphs:   graphrepo.NewInMemoryDescriptionRepository(),
		status:   services.NewStatusBoard(),
		log:      log,
		files:    make(map[string]*config.File),
	}
	s.workload = &workloadManager{s: s}
	return s
}

// loadDir registers every topology file in dir under its base name. Files
// that fail to load are logged and skipped.
func (s *server) loadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read config dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := config.FormatFor(e.Name()); err != nil {
			continue
		}
		if err := s.register(ctx, filepath.Join(dir, e.Name())); err != nil {
			s.log.Warn("Skipping topology file", "file", e.Name(), "error", err)
		}
	}
	return nil
}

func (s *server) register(ctx context.Context, path string) error {
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	desc, err := f.Compile(config.Selection{}, nil)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := s.graphs.Save(ctx, name, desc); err != nil {
		return err
	}
	s.mu.Lock()
	s.files[name] = f
	s.mu.Unlock()
	s.log.Info("Topology registered", "name", name, "topology", desc.Type, "anchor", desc.Graph.Anchor)
	return nil
}

func (s *server) file(name string) (*config.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[name]
	return f, ok
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	r.HandleFunc("/graphs", s.handleGraphs).Methods(http.MethodGet)
	r.HandleFunc("/graphs/{name}", s.handleGraph).Methods(http.MethodGet)
	r.HandleFunc("/episodes", s.handleEpisodes).Methods(http.MethodGet)
	r.HandleFunc("/episodes/replay", s.handleReplay).Methods(http.MethodPost)
	r.HandleFunc("/episodes/{id}", s.handleEpisode).Methods(http.MethodGet)

	r.HandleFunc("/workload/replay/start", s.workload.start).Methods(http.MethodPost)
	r.HandleFunc("/workload/replay/stop", s.workload.stop).Methods(http.MethodPost)
	return r
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	_, _ = fmt.Fprintln(w, "commgraph server is running. See /healthz, /metrics, /graphs, /episodes, /debug/vars, /debug/pprof/")
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "ok")
}

func (s *server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := metrics.WritePrometheus(w); err != nil {
		s.log.Error("Metrics write failed", "error", err)
	}
}

func (s *server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	names, err := s.graphs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"graphs": names})
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	desc, err := s.graphs.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, topology.ErrDescriptionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, desc)
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		if err := desc.Graph.WriteDOT(w, string(desc.Type)); err != nil {
			s.log.Error("DOT write failed", "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown graph format %q, use json or dot", r.URL.Query().Get("format")))
	}
}

func (s *server) handleEpisodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"episodes": s.status.List()})
}

func (s *server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, ok := s.status.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("episode %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleReplay plays the posted transcript over the named topology and
// returns the episode result
func (s *server) handleReplay(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("config")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr, err := transcript.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.replaySession(r.Context(), name, tr)
	switch {
	case errors.Is(err, errUnknownConfig):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, config.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer sess.Close()

	res, err := sess.Run(r.Context(), transcript.NewAgent(tr.Turns))
	if err != nil {
		s.log.Warn("Replay stopped early", "episode_id", sess.ID(), "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"result": res, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

var errUnknownConfig = errors.New("unknown topology config")

// replaySession compiles the named topology for the transcript's task and
// opens a session publishing to the server's status board
func (s *server) replaySession(ctx context.Context, name string, tr *transcript.Transcript) (*commgraph.Session, error) {
	f, ok := s.file(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownConfig, name)
	}
	desc, err := f.Compile(config.Selection{Category: tr.Category, TaskType: tr.TaskType}, nil)
	if err != nil {
		return nil, err
	}
	settings := s.settings
	return commgraph.NewSessionFromDescription(ctx, desc, commgraph.Options{
		Settings:    &settings,
		Goal:        tr.Goal,
		Environment: transcript.NewEnvironment(tr.Observations),
		Status:      s.status,
		Logger:      s.log,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
