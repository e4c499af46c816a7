package workspace

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/audit"
)

func TestCreateValidatesIntake(t *testing.T) {
	m := NewManager(ManagerConfig{Log: zerolog.Nop()})

	t.Run("valid intake", func(t *testing.T) {
		w, err := m.Create(testIntake())
		require.NoError(t, err)
		assert.NotEmpty(t, w.ID())
		assert.Equal(t, "2026-08-24", w.TargetDate())
		assert.Equal(t, 1, m.Count())
	})

	t.Run("missing target date", func(t *testing.T) {
		intake := testIntake()
		intake.TargetDate = "  "
		_, err := m.Create(intake)
		require.Error(t, err)
	})

	t.Run("malformed target date", func(t *testing.T) {
		intake := testIntake()
		intake.TargetDate = "24/08/2026"
		_, err := m.Create(intake)
		require.Error(t, err)
	})

	t.Run("short baseline", func(t *testing.T) {
		intake := testIntake()
		intake.Baseline = intake.Baseline[:12]
		_, err := m.Create(intake)
		require.Error(t, err)
		kind, ok := domain.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, domain.ErrValidation, kind)
	})
}

func TestGetUnknownWorkspace(t *testing.T) {
	m := NewManager(ManagerConfig{Log: zerolog.Nop()})
	_, err := m.Get("nope")
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrNotFound, kind)
}

func TestWorkspacesAreIndependent(t *testing.T) {
	m := NewManager(ManagerConfig{Log: zerolog.Nop()})
	w1, err := m.Create(testIntake())
	require.NoError(t, err)
	w2, err := m.Create(testIntake())
	require.NoError(t, err)

	openDecision(t, w1)
	_, err = w1.ApplyLocalAdjustment([]domain.LocalAdjustmentRequest{{Hour: 10, NewValue: 5000}})
	require.NoError(t, err)

	// w2 sees neither the decision nor the adjustment
	_, ok := w2.ActiveDecision()
	assert.False(t, ok)
	assert.Equal(t, 4772.0, w2.Snapshot().Points[10].Current)
	assert.Empty(t, w2.History(audit.Filter{}))
}

func TestCleanupIdle(t *testing.T) {
	m := NewManager(ManagerConfig{Log: zerolog.Nop(), IdleTTL: 50 * time.Millisecond})
	w, err := m.Create(testIntake())
	require.NoError(t, err)
	fresh, err := m.Create(testIntake())
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	// Activity on one workspace keeps it alive past the cutoff
	fresh.Snapshot()
	openDecision(t, fresh)

	removed := m.CleanupIdle()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Count())

	_, err = m.Get(w.ID())
	require.Error(t, err)
	_, err = m.Get(fresh.ID())
	require.NoError(t, err)
}

func TestPersistenceMirrorsTrail(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo, err := audit.NewRepository(db, zerolog.Nop())
	require.NoError(t, err)

	m := NewManager(ManagerConfig{Log: zerolog.Nop(), Persister: repo})
	w, err := m.Create(testIntake())
	require.NoError(t, err)

	d := openDecision(t, w)
	_, err = w.ApplyGlobalAdjustment(domain.GlobalAdjustmentRequest{
		StartHour: 9, EndHour: 11, Direction: domain.DirectionIncrease, Percentage: 5,
	})
	require.NoError(t, err)
	_, err = w.CompleteDecision(d.ID)
	require.NoError(t, err)

	// The on-disk trail matches the in-memory one
	persisted, err := repo.ListEntries(w.ID(), audit.Filter{})
	require.NoError(t, err)
	inMemory := w.History(audit.Filter{})
	require.Len(t, persisted, len(inMemory))
	for i := range persisted {
		assert.Equal(t, inMemory[i].Sequence, persisted[i].Sequence)
		assert.Equal(t, inMemory[i].Kind, persisted[i].Kind)
	}

	decisions, err := repo.ListDecisions(w.ID())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.DecisionCompleted, decisions[0].Status)
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cache, err := NewSnapshotCache(db, zerolog.Nop())
	require.NoError(t, err)

	m := NewManager(ManagerConfig{Log: zerolog.Nop(), Cache: cache})
	w, err := m.Create(testIntake())
	require.NoError(t, err)

	openDecision(t, w)
	_, err = w.ApplyLocalAdjustment([]domain.LocalAdjustmentRequest{{Hour: 10, NewValue: 5000}})
	require.NoError(t, err)

	cached, err := cache.Load(w.ID())
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, w.ID(), cached.WorkspaceID)
	assert.Equal(t, 5000.0, cached.Points[10].Current)

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	t.Run("cleanup drops the cached snapshot", func(t *testing.T) {
		require.NoError(t, cache.Delete(w.ID()))
		gone, err := cache.Load(w.ID())
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("unknown workspace loads nil", func(t *testing.T) {
		missing, err := cache.Load("nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
