package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/unetgrid/internal/aggregate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLaunches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := s.RecordLaunch(ctx, Launch{Job: "train", Mode: "train", Dispatch: "submit", LSFJobID: "11", Command: "bsub ...", CreatedAt: base})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.RecordLaunch(ctx, Launch{Job: "test", Mode: "test", Dispatch: "local", Command: "python3 u-net.py", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	all, err := s.ListLaunches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	if diff := cmp.Diff([]Launch{second, first}, all); diff != "" {
		t.Errorf("ListLaunches mismatch (-want +got):\n%s", diff)
	}

	limited, err := s.ListLaunches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "test", limited[0].Job)
}

func TestRecordLaunch_DefaultsTimestamp(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	l, err := s.RecordLaunch(context.Background(), Launch{Job: "j", Mode: "train", Dispatch: "submit", Command: "c"})
	require.NoError(t, err)
	assert.Equal(t, fixed, l.CreatedAt)
}

func TestResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []aggregate.Row{
		aggregate.NewRow("TUMBLE_sae_0.5", aggregate.Metrics{Time: "1.23", F1Score: "0.9", AUC: "0.8", MeanIOU: "0.7"}),
		aggregate.NewRow("plain_1.0", aggregate.Metrics{}),
	}
	batch, err := s.RecordResults(ctx, rows)
	require.NoError(t, err)

	got, err := s.Results(ctx, batch)
	require.NoError(t, err)
	want := [][]string{
		{"TUMBLE_sae_0.5", "T", "F", "F", "F", "F", "0.5", "T", "1.23", "0.9", "0.8", "0.7"},
		{"plain_1.0", "F", "F", "F", "F", "F", "1.0", "F", "", "", "", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Results mismatch (-want +got):\n%s", diff)
	}

	other, err := s.Results(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, other)
}
