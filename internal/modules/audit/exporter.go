package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"forecastdesk/internal/domain"
)

// Export is the full downloadable audit trail of one workspace: every
// decision with its justification and lifecycle timestamps, plus the flat
// ordered entry list.
type Export struct {
	WorkspaceID string            `json:"workspace_id"`
	TargetDate  string            `json:"target_date"`
	GeneratedAt time.Time         `json:"generated_at"`
	Decisions   []domain.Decision `json:"decisions"`
	Entries     []Entry           `json:"entries"`
}

// BuildExport assembles an export from a workspace's decisions and audit
// entries. Inputs are copies already, so the export is safe to hold after the
// workspace moves on.
func BuildExport(workspaceID, targetDate string, decisions []domain.Decision, entries []Entry) Export {
	return Export{
		WorkspaceID: workspaceID,
		TargetDate:  targetDate,
		GeneratedAt: time.Now().UTC(),
		Decisions:   decisions,
		Entries:     entries,
	}
}

// WriteJSON renders the export as indented JSON
func (e Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode audit export: %w", err)
	}
	return nil
}

// WriteCSV renders the entry list as CSV with decision metadata joined in.
// One row per audit entry; decision label/rationale/status repeat per row so
// the file stands alone in a spreadsheet.
func (e Export) WriteCSV(w io.Writer) error {
	byID := make(map[string]domain.Decision, len(e.Decisions))
	for _, d := range e.Decisions {
		byID[d.ID] = d
	}

	cw := csv.NewWriter(w)
	header := []string{
		"sequence", "timestamp", "kind", "hour", "previous_value", "new_value",
		"decision_id", "decision_label", "decision_rationale", "decision_status",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range e.Entries {
		d := byID[entry.DecisionID]
		hour := ""
		if entry.Hour >= 0 {
			hour = strconv.Itoa(entry.Hour)
		}
		row := []string{
			strconv.FormatInt(entry.Sequence, 10),
			entry.Timestamp.UTC().Format(time.RFC3339),
			string(entry.Kind),
			hour,
			formatValue(entry.Kind, entry.PreviousValue),
			formatValue(entry.Kind, entry.NewValue),
			entry.DecisionID,
			d.Label,
			d.Rationale,
			string(d.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", entry.Sequence, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatValue renders adjustment values; transition entries have no values
func formatValue(kind Kind, v float64) string {
	if kind == KindDecisionCreated || kind == KindDecisionCompleted {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
