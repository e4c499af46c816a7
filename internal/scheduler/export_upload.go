package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"forecastdesk/internal/modules/workspace"
)

// Uploader pushes an export artifact to remote storage. Satisfied by
// s3archive.Client; nil disables remote upload.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// ExportUploadJob writes a JSON audit export for every live workspace to the
// export directory and, when an uploader is configured, mirrors it to remote
// storage. Runs nightly so the audit trail survives workspace expiry.
type ExportUploadJob struct {
	manager   *workspace.Manager
	exportDir string
	uploader  Uploader
	log       zerolog.Logger
}

// NewExportUploadJob creates the export job. uploader may be nil.
func NewExportUploadJob(manager *workspace.Manager, exportDir string, uploader Uploader, log zerolog.Logger) *ExportUploadJob {
	return &ExportUploadJob{
		manager:   manager,
		exportDir: exportDir,
		uploader:  uploader,
		log:       log.With().Str("job", "export_upload").Logger(),
	}
}

// Name returns the job name
func (j *ExportUploadJob) Name() string {
	return "export_upload"
}

// Run exports every live workspace. Per-workspace failures are logged and
// skipped so one bad workspace cannot block the rest of the nightly run.
func (j *ExportUploadJob) Run(ctx context.Context) error {
	workspaces := j.manager.List()
	if len(workspaces) == 0 {
		return nil
	}

	if err := os.MkdirAll(j.exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory %s: %w", j.exportDir, err)
	}

	var failures int
	for _, w := range workspaces {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.exportWorkspace(ctx, w); err != nil {
			j.log.Error().Err(err).Str("workspace_id", w.ID()).Msg("Export failed")
			failures++
		}
	}

	j.log.Info().
		Int("workspaces", len(workspaces)).
		Int("failures", failures).
		Msg("Export run complete")

	if failures > 0 {
		return fmt.Errorf("%d of %d workspace exports failed", failures, len(workspaces))
	}
	return nil
}

func (j *ExportUploadJob) exportWorkspace(ctx context.Context, w *workspace.Workspace) error {
	export := w.Export()

	var buf bytes.Buffer
	if err := export.WriteJSON(&buf); err != nil {
		return fmt.Errorf("failed to serialize export: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", export.TargetDate, w.ID())
	localPath := filepath.Join(j.exportDir, name)
	if err := os.WriteFile(localPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	if j.uploader == nil {
		return nil
	}

	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006/01/02"), name)
	if _, err := j.uploader.Upload(ctx, key, "application/json", buf.Bytes()); err != nil {
		return err
	}
	return nil
}
