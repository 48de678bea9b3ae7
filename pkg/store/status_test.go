package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

// setupTestStore creates a temporary SQLite database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		os.Remove(dbPath)
	})
	return s
}

func TestStatusRecords_InsertAndQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	records := []statuslog.Record{
		{Timestamp: base, Kind: statuslog.KindPending, IP: "10.0.0.1", Credential: "ks-a", Message: "issued", RequestID: "r1"},
		{Timestamp: base.Add(time.Second), Kind: statuslog.KindSuccessful, IP: "10.0.0.1", Credential: "ks-a", Message: "confirmed", RequestID: "r2"},
		{Timestamp: base.Add(2 * time.Second), Kind: statuslog.KindPending, IP: "10.0.0.2", Credential: "ks-b", Message: "issued"},
		{Timestamp: base.Add(7 * time.Second), Kind: statuslog.KindFailed, IP: "10.0.0.2", Credential: "ks-b", Message: "timeout"},
	}
	for _, rec := range records {
		require.NoError(t, s.Write(ctx, rec))
	}

	t.Run("All", func(t *testing.T) {
		got, err := s.QueryStatusRecords(ctx, StatusFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, records, got, "records come back in append order, unchanged")
	})

	t.Run("ByCredential", func(t *testing.T) {
		got, err := s.QueryStatusRecords(ctx, StatusFilter{Credential: "ks-b"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, statuslog.KindPending, got[0].Kind)
		assert.Equal(t, statuslog.KindFailed, got[1].Kind)
	})

	t.Run("ByKind", func(t *testing.T) {
		got, err := s.QueryStatusRecords(ctx, StatusFilter{Kind: statuslog.KindPending})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Since", func(t *testing.T) {
		got, err := s.QueryStatusRecords(ctx, StatusFilter{Since: base.Add(2 * time.Second)})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("LimitKeepsMostRecent", func(t *testing.T) {
		got, err := s.QueryStatusRecords(ctx, StatusFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ks-b", got[0].Credential)
		assert.Equal(t, statuslog.KindFailed, got[1].Kind)
	})

	t.Run("CountByKind", func(t *testing.T) {
		counts, err := s.CountByKind(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[statuslog.KindPending])
		assert.Equal(t, 1, counts[statuslog.KindSuccessful])
		assert.Equal(t, 1, counts[statuslog.KindFailed])
		assert.Equal(t, 0, counts[statuslog.KindRejected])
	})
}

func TestStore_AsLoggerMirror(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	primary := statuslog.NewMemorySink()
	l := statuslog.New(primary, statuslog.WithMirror(s))
	require.NoError(t, l.Record(ctx, statuslog.KindRejected, "10.1.1.1", "ks-zzz", "client reports stored credential invalid"))

	got, err := s.QueryStatusRecords(ctx, StatusFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, primary.Records()[0].Timestamp.UnixMilli(), got[0].Timestamp.UnixMilli())
	assert.Equal(t, statuslog.KindRejected, got[0].Kind)
}

func TestOpen_ReopenKeepsRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "status.db")
	ctx := context.Background()

	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, statuslog.Record{Timestamp: time.Now(), Kind: statuslog.KindPending, Credential: "ks-q"}))
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.QueryStatusRecords(ctx, StatusFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStatusFilter_Apply(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []statuslog.Record{
		{Timestamp: base, Kind: statuslog.KindPending, Credential: "ks-a"},
		{Timestamp: base.Add(time.Second), Kind: statuslog.KindPending, Credential: "ks-b"},
		{Timestamp: base.Add(2 * time.Second), Kind: statuslog.KindSuccessful, Credential: "ks-a"},
		{Timestamp: base.Add(3 * time.Second), Kind: statuslog.KindFailed, Credential: "ks-b"},
	}

	credentials := func(rs []statuslog.Record) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Credential + "/" + string(r.Kind)
		}
		return out
	}

	tests := []struct {
		name   string
		filter StatusFilter
		want   []string
	}{
		{"empty filter", StatusFilter{}, []string{"ks-a/PENDING", "ks-b/PENDING", "ks-a/SUCCESSFUL", "ks-b/FAILED"}},
		{"by kind", StatusFilter{Kind: statuslog.KindPending}, []string{"ks-a/PENDING", "ks-b/PENDING"}},
		{"by credential", StatusFilter{Credential: "ks-b"}, []string{"ks-b/PENDING", "ks-b/FAILED"}},
		{"since", StatusFilter{Since: base.Add(2 * time.Second)}, []string{"ks-a/SUCCESSFUL", "ks-b/FAILED"}},
		{"limit keeps most recent", StatusFilter{Limit: 2}, []string{"ks-a/SUCCESSFUL", "ks-b/FAILED"}},
		{"no match", StatusFilter{Credential: "ks-z"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, credentials(tt.filter.Apply(records)))
		})
	}
}

func TestStore_MirrorSurvivesCanceledRequest(t *testing.T) {
	s := setupTestStore(t)
	primary := statuslog.NewMemorySink()
	logger := statuslog.New(primary, statuslog.WithMirror(s))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Log("Client went away after the transition; both sinks still get the record")
	require.NoError(t, logger.Record(ctx, statuslog.KindSuccessful, "10.0.0.1", "ks-a", "client confirmed receipt"))
	assert.Equal(t, 1, primary.Count())

	rows, err := s.QueryStatusRecords(context.Background(), StatusFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, statuslog.KindSuccessful, rows[0].Kind)
}
