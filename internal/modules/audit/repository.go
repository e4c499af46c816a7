package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
)

// Repository persists the audit trail to audit.db. Entries are INSERT-only -
// the table mirrors the in-memory log and is never updated or reordered, so
// the on-disk trail survives restarts and feeds exports without touching the
// live workspaces.
//
// Decisions are upserted (their status and completion time change exactly
// once); entries are append-only.
type Repository struct {
	db  *sql.DB // audit.db - audit_entries + decisions tables
	log zerolog.Logger
}

// NewRepository creates the audit repository and ensures its schema exists
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repository", "audit").Logger(),
	}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return r, nil
}

func (r *Repository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			workspace_id   TEXT NOT NULL,
			sequence       INTEGER NOT NULL,
			timestamp      TEXT NOT NULL,
			decision_id    TEXT NOT NULL,
			kind           TEXT NOT NULL,
			record_id      TEXT NOT NULL DEFAULT '',
			hour           INTEGER NOT NULL,
			previous_value REAL NOT NULL DEFAULT 0,
			new_value      REAL NOT NULL DEFAULT 0,
			detail         TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (workspace_id, sequence)
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_decision
			ON audit_entries (workspace_id, decision_id);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_kind
			ON audit_entries (workspace_id, kind);
		CREATE TABLE IF NOT EXISTS decisions (
			workspace_id TEXT NOT NULL,
			id           TEXT NOT NULL,
			label        TEXT NOT NULL,
			rationale    TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			completed_at TEXT,
			PRIMARY KEY (workspace_id, id)
		);
	`)
	return err
}

// AppendEntry persists one audit entry. The entry must already carry its
// sequence (assigned by the in-memory log).
func (r *Repository) AppendEntry(workspaceID string, e Entry) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_entries
			(workspace_id, sequence, timestamp, decision_id, kind, record_id, hour, previous_value, new_value, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, workspaceID, e.Sequence, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.DecisionID, string(e.Kind), e.RecordID, e.Hour, e.PreviousValue, e.NewValue, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit entry %d for workspace %s: %w", e.Sequence, workspaceID, err)
	}
	return nil
}

// SaveDecision inserts or updates a decision row. Called on creation and on
// every transition, so the stored status tracks the state machine.
func (r *Repository) SaveDecision(workspaceID string, d domain.Decision) error {
	var completedAt *string
	if d.CompletedAt != nil {
		s := d.CompletedAt.UTC().Format(time.RFC3339Nano)
		completedAt = &s
	}
	_, err := r.db.Exec(`
		INSERT INTO decisions (workspace_id, id, label, rationale, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at
	`, workspaceID, d.ID, d.Label, d.Rationale, string(d.Status),
		d.CreatedAt.UTC().Format(time.RFC3339Nano), completedAt)
	if err != nil {
		return fmt.Errorf("failed to save decision %s: %w", d.ID, err)
	}
	return nil
}

// ListEntries loads the persisted trail for a workspace, filtered and ordered
// by sequence.
func (r *Repository) ListEntries(workspaceID string, filter Filter) ([]Entry, error) {
	query := `
		SELECT sequence, timestamp, decision_id, kind, record_id, hour, previous_value, new_value, detail
		FROM audit_entries WHERE workspace_id = ?`
	args := []interface{}{workspaceID}

	if filter.DecisionID != "" {
		query += " AND decision_id = ?"
		args = append(args, filter.DecisionID)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY sequence"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, kind string
		if err := rows.Scan(&e.Sequence, &ts, &e.DecisionID, &kind, &e.RecordID, &e.Hour, &e.PreviousValue, &e.NewValue, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Kind = Kind(kind)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("failed to parse audit timestamp %q: %w", ts, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListDecisions loads all persisted decisions for a workspace in creation order
func (r *Repository) ListDecisions(workspaceID string) ([]domain.Decision, error) {
	rows, err := r.db.Query(`
		SELECT id, label, rationale, status, created_at, completed_at
		FROM decisions WHERE workspace_id = ? ORDER BY created_at, id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.Decision
	for rows.Next() {
		var d domain.Decision
		var status, createdAt string
		var completedAt sql.NullString
		if err := rows.Scan(&d.ID, &d.Label, &d.Rationale, &status, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Status = domain.DecisionStatus(status)
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse decision created_at %q: %w", createdAt, err)
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse decision completed_at %q: %w", completedAt.String, err)
			}
			d.CompletedAt = &t
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// EntryCount returns the number of persisted entries across all workspaces.
// Used by the system status handler for database stats.
func (r *Repository) EntryCount() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM audit_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
