package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := Event{
		CycleID: UUIDToBytes(uuid.New()),
		TS:      time.Now(),
		Stage:   StageCycleStart,
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{"valid cycle event", func(*Event) {}, ""},
		{"missing cycle id", func(e *Event) { e.CycleID = [16]byte{} }, "cycle id"},
		{"missing timestamp", func(e *Event) { e.TS = time.Time{} }, "timestamp"},
		{"unknown stage", func(e *Event) { e.Stage = "LUNCH_BREAK" }, "unknown stage"},
		{"center event without code", func(e *Event) { e.Stage = StageCenterDone }, "center code"},
		{"negative duration", func(e *Event) { e.Dur = -time.Second }, "duration"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := valid
			tc.mutate(&evt)
			err := evt.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEventValidateCenterStage(t *testing.T) {
	t.Parallel()

	evt := Event{
		CycleID: UUIDToBytes(uuid.New()),
		TS:      time.Now(),
		Stage:   StageCenterError,
		Center:  "CAGVC",
	}
	require.NoError(t, evt.Validate())
}

func TestUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{CycleID: UUIDToBytes(id)}
	require.Equal(t, id, evt.CycleUUID())
}
