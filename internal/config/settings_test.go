package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettings_Defaults(t *testing.T) {
	s, err := ParseSettings(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.Equal(t, slog.LevelInfo, s.SlogLevel())

	p, err := s.Storage.Pipeline()
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestParseSettings_Overrides(t *testing.T) {
	s, err := ParseSettings(map[string]string{
		"COMMGRAPH_MAX_ROUNDS":                "4",
		"COMMGRAPH_MAX_TRANSITIONS_PER_ROUND": "12",
		"COMMGRAPH_CYCLE_THRESHOLD":           "6",
		"COMMGRAPH_RULES_EXCLUDE_TOPOLOGIES":  "single,mesh",
		"COMMGRAPH_STORAGE_DRIVER":            "sqlite",
		"COMMGRAPH_STORAGE_DSN":               "file:episodes.db",
		"COMMGRAPH_STORAGE_CODEC":             "json",
		"COMMGRAPH_STORAGE_COMPRESSION":       "none",
		"COMMGRAPH_STRUCTURED_ACTIONS":        "true",
		"COMMGRAPH_CHECKPOINT_EVERY":          "2",
		"COMMGRAPH_LOG_LEVEL":                 "debug",
		"MAX_ROUNDS":                          "99",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Limits.MaxRounds)
	assert.Equal(t, 12, s.Limits.MaxTransitionsPerRound)
	assert.Equal(t, 6, s.Rules.CycleThreshold)
	assert.Equal(t, 3, s.Rules.ViolationThreshold)
	assert.Equal(t, []string{"single", "mesh"}, s.Policy.ExcludeTopologies)
	assert.False(t, s.Policy.Applies("mesh"))
	assert.True(t, s.Policy.Applies("star"))
	assert.Equal(t, Storage{Driver: "sqlite", DSN: "file:episodes.db", Codec: "json", Compression: "none"}, s.Storage)
	assert.True(t, s.StructuredActions)
	assert.Equal(t, 2, s.CheckpointEvery)
	assert.Equal(t, slog.LevelDebug, s.SlogLevel())
}

func TestParseSettings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{name: "bad driver", environ: map[string]string{"COMMGRAPH_STORAGE_DRIVER": "redis"}, want: "Storage.Driver: must be one of [memory sqlite postgres]"},
		{name: "dsn required", environ: map[string]string{"COMMGRAPH_STORAGE_DRIVER": "postgres"}, want: "COMMGRAPH_STORAGE_DSN is required for the postgres driver"},
		{name: "zero rounds", environ: map[string]string{"COMMGRAPH_MAX_ROUNDS": "0"}, want: "minimum value/length is 1"},
		{name: "not a number", environ: map[string]string{"COMMGRAPH_CHECKPOINT_EVERY": "often"}, want: "parse env"},
		{name: "bad log level", environ: map[string]string{"COMMGRAPH_LOG_LEVEL": "loud"}, want: "must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings(tt.environ)
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSettings_Dotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMMGRAPH_MAX_ROUNDS=7\n"), 0o600))
	t.Setenv("COMMGRAPH_MAX_ROUNDS", "")
	require.NoError(t, os.Unsetenv("COMMGRAPH_MAX_ROUNDS"))

	s, err := LoadSettings(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Limits.MaxRounds)
}

func TestStorage_PipelineRejectsUnknownCodec(t *testing.T) {
	_, err := Storage{Codec: "gob", Compression: "none"}.Pipeline()
	assert.Error(t, err)
}
