package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"forecastdesk/internal/modules/workspace"
)

// WorkspaceCleanupJob removes workspaces that have been idle past their TTL.
// The persisted audit trail is untouched; only live session state goes away.
type WorkspaceCleanupJob struct {
	manager *workspace.Manager
	log     zerolog.Logger
}

// NewWorkspaceCleanupJob creates the cleanup job
func NewWorkspaceCleanupJob(manager *workspace.Manager, log zerolog.Logger) *WorkspaceCleanupJob {
	return &WorkspaceCleanupJob{
		manager: manager,
		log:     log.With().Str("job", "workspace_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *WorkspaceCleanupJob) Name() string {
	return "workspace_cleanup"
}

// Run removes idle workspaces. The sweep is a single in-memory pass, so ctx
// only matters for the interface.
func (j *WorkspaceCleanupJob) Run(_ context.Context) error {
	removed := j.manager.CleanupIdle()
	if removed > 0 {
		j.log.Info().Int("removed", removed).Int("remaining", j.manager.Count()).Msg("Idle workspaces removed")
	}
	return nil
}
