package workspace

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/events"
	"forecastdesk/internal/modules/adjustment"
	"forecastdesk/internal/modules/series"
	"forecastdesk/internal/modules/solver"
)

// DefaultIdleTTL is how long a workspace may sit untouched before the cleanup
// job removes it.
const DefaultIdleTTL = 4 * time.Hour

// ManagerConfig wires the manager's collaborators. Persister, Cache, and Bus
// are optional - a nil value disables that concern.
type ManagerConfig struct {
	PercentageCap float64
	IdleTTL       time.Duration
	Persister     AuditPersister
	Cache         SnapshotCacher
	Bus           *events.Bus
	Log           zerolog.Logger
}

// Manager owns all live workspaces, keyed by id. Sessions are fully
// independent; the manager's lock only guards the map itself.
type Manager struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	engine    *adjustment.Engine
	solver    *solver.Solver
	idleTTL   time.Duration
	persister AuditPersister
	cache     SnapshotCacher
	bus       *events.Bus
	log       zerolog.Logger
}

// NewManager creates a workspace manager
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	log := cfg.Log.With().Str("service", "workspace_manager").Logger()
	return &Manager{
		workspaces: make(map[string]*Workspace),
		engine:     adjustment.NewEngine(cfg.PercentageCap, cfg.Log),
		solver:     solver.New(cfg.PercentageCap, cfg.Log),
		idleTTL:    cfg.IdleTTL,
		persister:  cfg.Persister,
		cache:      cfg.Cache,
		bus:        cfg.Bus,
		log:        log,
	}
}

// Create validates a forecast intake and seeds a new workspace from it.
// The baseline and confidence bounds are read once here and frozen for the
// lifetime of the workspace.
func (m *Manager) Create(intake domain.ForecastIntake) (*Workspace, error) {
	targetDate := strings.TrimSpace(intake.TargetDate)
	if targetDate == "" {
		return nil, domain.NewValidationError("target date is required")
	}
	if _, err := time.Parse("2006-01-02", targetDate); err != nil {
		return nil, domain.NewValidationError("target date %q is not YYYY-MM-DD", targetDate)
	}

	ser, err := series.New(targetDate, intake.Baseline, intake.Confidence)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	w := newWorkspace(id, ser, m.engine, m.solver, m.persister, m.cache, m.bus, m.log)

	m.mu.Lock()
	m.workspaces[id] = w
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Save(w.Snapshot()); err != nil {
			m.log.Error().Err(err).Str("workspace_id", id).Msg("Failed to cache initial snapshot")
		}
	}
	if m.bus != nil {
		m.bus.Publish(events.WorkspaceCreated, map[string]string{
			"workspace_id": id,
			"target_date":  targetDate,
		})
	}

	m.log.Info().Str("workspace_id", id).Str("target_date", targetDate).Msg("Workspace created")
	return w, nil
}

// Get returns a workspace by id
func (m *Manager) Get(id string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workspaces[id]
	if !ok {
		return nil, domain.NewNotFoundError("workspace %s does not exist", id)
	}
	return w, nil
}

// List returns all live workspaces in unspecified order
func (m *Manager) List() []*Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Workspace, 0, len(m.workspaces))
	for _, w := range m.workspaces {
		result = append(result, w)
	}
	return result
}

// Count returns the number of live workspaces
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// CleanupIdle removes workspaces whose last activity is older than the idle
// TTL and returns how many were removed. The persisted audit trail outlives
// the workspace; only the live session state and cached snapshot go away.
func (m *Manager) CleanupIdle() int {
	cutoff := time.Now().UTC().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Workspace
	for id, w := range m.workspaces {
		if w.LastActivity().Before(cutoff) {
			expired = append(expired, w)
			delete(m.workspaces, id)
		}
	}
	m.mu.Unlock()

	for _, w := range expired {
		if m.cache != nil {
			if err := m.cache.Delete(w.ID()); err != nil {
				m.log.Error().Err(err).Str("workspace_id", w.ID()).Msg("Failed to drop cached snapshot")
			}
		}
		if m.bus != nil {
			m.bus.Publish(events.WorkspaceExpired, map[string]string{"workspace_id": w.ID()})
		}
		m.log.Info().Str("workspace_id", w.ID()).Msg("Workspace expired")
	}
	return len(expired)
}
