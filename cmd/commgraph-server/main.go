// Package main provides an HTTP server exposing compiled topologies,
// episode statuses and debug endpoints.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof
	"os"

	"github.com/commgraph/commgraph/internal/config"
)

func main() {
	settings, err := config.LoadSettings(".env")
	if err != nil {
		slog.Error("Invalid settings", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: settings.SlogLevel()}))
	slog.SetDefault(log)

	dir := "configs"
	if v := os.Getenv(config.EnvPrefix + "CONFIG_DIR"); v != "" {
		dir = v
	}
	s := newServer(settings, log)
	if err := s.loadDir(context.Background(), dir); err != nil {
		log.Error("Loading topologies failed", "dir", dir, "error", err)
		os.Exit(1)
	}

	addr := ":8080"
	if v := os.Getenv(config.EnvPrefix + "ADDR"); v != "" {
		addr = v
	}
	log.Info("Starting commgraph server", "addr", addr, "storage", settings.Storage.Driver)
	if err := http.ListenAndServe(addr, s.routes()); err != nil {
		log.Error("Server error", "error", err)
		os.Exit(1)
	}
}
