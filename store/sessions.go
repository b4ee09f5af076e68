package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// titleLimit caps the derived session title length.
const titleLimit = 48

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("store: session not found")

// Session is one pharmacist conversation.
type Session struct {
	ID        string    `json:"id"`
	PatientID int64     `json:"patientId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSession inserts a session with a default title.
func (s *Store) CreateSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("store: creating session: %w", err)
	}
	return nil
}

// TouchSession updates the session's activity timestamp, links the
// patient, and, while the title is still the default, derives one from
// the first user message.
func (s *Store) TouchSession(ctx context.Context, id string, patientID int64, firstText string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET patient_id = ?,
		    title = CASE WHEN title = 'New Session' AND ? != '' THEN ? ELSE title END,
		    updated_at = datetime('now')
		WHERE id = ?`,
		patientID, firstText, deriveTitle(firstText), id)
	if err != nil {
		return fmt.Errorf("store: touching session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions returns sessions most recently active first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, title, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var patientID sql.NullInt64
		var created, updated string
		if err := rows.Scan(&sess.ID, &patientID, &sess.Title, &created, &updated); err != nil {
			return nil, err
		}
		sess.PatientID = patientID.Int64
		sess.CreatedAt, _ = time.Parse(time.DateTime, created)
		sess.UpdatedAt, _ = time.Parse(time.DateTime, updated)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func deriveTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= titleLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleLimit-1]) + "…"
}
