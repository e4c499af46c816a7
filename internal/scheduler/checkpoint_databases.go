package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"forecastdesk/internal/database"
)

// CheckpointJob forces WAL checkpoints on the databases so the WAL files stay
// bounded on long-running installs.
type CheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewCheckpointJob creates the checkpoint job
func NewCheckpointJob(databases []*database.DB, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database. Checkpoints continue past individual
// failures; the first error is returned at the end.
func (j *CheckpointJob) Run(ctx context.Context) error {
	var firstErr error
	for _, db := range j.databases {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if err := db.Checkpoint(); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Checkpoint failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("Checkpoint complete")
	}
	return firstErr
}
