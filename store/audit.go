package store

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry is one row in the run audit trail. Every streaming run
// records exactly one entry with the terminal outcome it reported.
type AuditEntry struct {
	RunID     string    `json:"runId"`
	SessionID string    `json:"sessionId,omitempty"`
	PatientID int64     `json:"patientId,omitempty"`
	Intent    string    `json:"intent"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppendAudit records a completed run.
func (s *Store) AppendAudit(ctx context.Context, e AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (run_id, session_id, patient_id, intent, status, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.SessionID, e.PatientID, e.Intent, e.Status, e.Detail)
	if err != nil {
		return fmt.Errorf("store: appending audit entry: %w", err)
	}
	return nil
}

// RecentAudits returns the latest audit entries, newest first.
func (s *Store) RecentAudits(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COALESCE(session_id, ''), COALESCE(patient_id, 0), intent, status, detail, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var created string
		if err := rows.Scan(&e.RunID, &e.SessionID, &e.PatientID, &e.Intent, &e.Status, &e.Detail, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.DateTime, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
