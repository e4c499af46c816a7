package workspace

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"forecastdesk/internal/domain"
)

// SnapshotCache stores the latest snapshot per workspace in cache.db as a
// msgpack blob. Purely ephemeral operational data: losing it costs a
// reconnecting UI one snapshot round trip, nothing more.
type SnapshotCache struct {
	db  *sql.DB // cache.db - workspace_snapshots table
	log zerolog.Logger
}

// NewSnapshotCache creates the cache and ensures its schema exists
func NewSnapshotCache(db *sql.DB, log zerolog.Logger) (*SnapshotCache, error) {
	c := &SnapshotCache{
		db:  db,
		log: log.With().Str("repository", "snapshot_cache").Logger(),
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workspace_snapshots (
			workspace_id TEXT PRIMARY KEY,
			target_date  TEXT NOT NULL,
			updated_at   INTEGER NOT NULL,
			payload      BLOB NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot cache schema: %w", err)
	}
	return c, nil
}

// Save upserts the latest snapshot for a workspace
func (c *SnapshotCache) Save(snapshot domain.Snapshot) error {
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for workspace %s: %w", snapshot.WorkspaceID, err)
	}
	_, err = c.db.Exec(`
		INSERT INTO workspace_snapshots (workspace_id, target_date, updated_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			target_date = excluded.target_date,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, snapshot.WorkspaceID, snapshot.TargetDate, time.Now().Unix(), payload)
	if err != nil {
		return fmt.Errorf("failed to cache snapshot for workspace %s: %w", snapshot.WorkspaceID, err)
	}
	return nil
}

// Load returns the cached snapshot for a workspace, or nil when absent
func (c *SnapshotCache) Load(workspaceID string) (*domain.Snapshot, error) {
	var payload []byte
	err := c.db.QueryRow(
		"SELECT payload FROM workspace_snapshots WHERE workspace_id = ?", workspaceID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached snapshot for workspace %s: %w", workspaceID, err)
	}

	var snapshot domain.Snapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot for workspace %s: %w", workspaceID, err)
	}
	return &snapshot, nil
}

// Delete removes a workspace's cached snapshot
func (c *SnapshotCache) Delete(workspaceID string) error {
	_, err := c.db.Exec("DELETE FROM workspace_snapshots WHERE workspace_id = ?", workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete cached snapshot for workspace %s: %w", workspaceID, err)
	}
	return nil
}

// Count returns the number of cached snapshots, for database stats
func (c *SnapshotCache) Count() (int64, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM workspace_snapshots").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cached snapshots: %w", err)
	}
	return count, nil
}
