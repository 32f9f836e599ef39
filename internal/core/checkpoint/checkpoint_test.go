package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckpoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cp      Checkpoint
		wantErr error
	}{
		{name: "valid", cp: Checkpoint{ID: "c1", EpisodeID: "e1", State: &State{}}},
		{name: "missing id", cp: Checkpoint{EpisodeID: "e1", State: &State{}}, wantErr: ErrInvalidCheckpointID},
		{name: "missing episode", cp: Checkpoint{ID: "c1", State: &State{}}, wantErr: ErrInvalidEpisodeID},
		{name: "nil state", cp: Checkpoint{ID: "c1", EpisodeID: "e1"}, wantErr: ErrNilState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cp.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	assert.ErrorIs(t, (&Filter{Limit: -1}).Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, (&Filter{Offset: -1}).Validate(), ErrInvalidOffset)
	assert.ErrorIs(t, (&Filter{Since: &now, Before: &earlier}).Validate(), ErrInvalidTimeRange)
	assert.NoError(t, (&Filter{Since: &earlier, Before: &now}).Validate())

	cp := &Checkpoint{EpisodeID: "e1", Timestamp: now.Add(-time.Minute)}
	assert.True(t, (&Filter{EpisodeID: "e1", Since: &earlier, Before: &now}).Matches(cp))
	assert.False(t, (&Filter{EpisodeID: "e2"}).Matches(cp))
	assert.False(t, (&Filter{Since: &now}).Matches(cp))
}
