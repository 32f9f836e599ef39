package metrics

import (
	"bytes"
	"expvar"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesArePublished(t *testing.T) {
	for _, name := range Names() {
		assert.NotNil(t, expvar.Get(name), name)
	}
}

func TestCounters(t *testing.T) {
	before := transitionsTotal.Value()
	IncTransitions()
	IncTransitions()
	assert.Equal(t, before+2, transitionsTotal.Value())

	active := episodesActive.Value()
	AddActiveEpisodes(1)
	assert.Equal(t, active+1, episodesActive.Value())
	AddActiveEpisodes(-1)
	assert.Equal(t, active, episodesActive.Value())
}

func TestWritePrometheus(t *testing.T) {
	IncTurn("applied")
	IncViolation("shape")
	IncAbort("max_rounds")

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE commgraph_turns_total counter\n")
	assert.Contains(t, out, `commgraph_turns_total{status="applied"} `)
	assert.Contains(t, out, `commgraph_violations_total{class="shape"} `)
	assert.Contains(t, out, `commgraph_aborts_total{reason="max_rounds"} `)
	assert.Contains(t, out, "# TYPE commgraph_episodes_active gauge\n")
	assert.Contains(t, out, "commgraph_transitions_total ")
}
