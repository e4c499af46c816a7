package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectoryAndConnects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")

	db, err := New(Config{Path: path, Profile: ProfileLedger, Name: "audit"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, "audit", db.Name())
	assert.Equal(t, ProfileLedger, db.Profile())
	assert.Equal(t, path, db.Path())

	_, err = db.Conn().Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
}

func TestDefaultProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "x"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestCheckpointAndStats(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "audit.db"), Profile: ProfileLedger, Name: "audit"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec("CREATE TABLE entries (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = db.Conn().Exec("INSERT INTO entries (v) VALUES (?)", "row")
		require.NoError(t, err)
	}

	require.NoError(t, db.Checkpoint())

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, "audit", stats.Name)
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)
	assert.Equal(t, stats.PageCount*stats.PageSize, stats.SizeBytes)
}

func TestProfileConnectionStrings(t *testing.T) {
	ledger := buildConnectionString("/tmp/a.db", ProfileLedger)
	assert.Contains(t, ledger, "journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "auto_vacuum(NONE)")

	cache := buildConnectionString("/tmp/b.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")
	assert.Contains(t, cache, "temp_store(MEMORY)")
}
