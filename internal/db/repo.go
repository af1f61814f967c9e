package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"patientsim/pkg"
)

// Repository wraps database operations for personas, simulation sessions
// and their transcripts.  The same queries run on Postgres and SQLite.
type Repository struct {
	DB *DB
}

// NewRepository constructs a new Repository from an open DB.  The caller is
// responsible for managing the DB connection lifecycle.
func NewRepository(db *DB) *Repository { return &Repository{DB: db} }

// PersonaBySlug returns the persona with the given slug, or nil when there
// is none.
func (r *Repository) PersonaBySlug(ctx context.Context, slug string) (*pkg.Persona, error) {
	var (
		p         pkg.Persona
		fields    []byte
		createdAt nullTime
	)
	err := r.DB.QueryRowContext(ctx, r.DB.rebind(
		`SELECT id, slug, display_name, summary, persona, notes_path, created_at
         FROM personas
         WHERE slug = ?`), slug,
	).Scan(&p.ID, &p.Slug, &p.DisplayName, &p.Summary, &fields, &p.NotesPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &p.Fields); err != nil {
			return nil, fmt.Errorf("decode persona %q: %w", slug, err)
		}
	}
	p.CreatedAt = createdAt.Time
	return &p, nil
}

// UpsertPersona inserts the persona or replaces the one with the same slug.
// On return p.ID holds the row id.
func (r *Repository) UpsertPersona(ctx context.Context, p *pkg.Persona) error {
	fields := p.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode persona %q: %w", p.Slug, err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return r.DB.QueryRowContext(ctx, r.DB.rebind(
		`INSERT INTO personas (slug, display_name, summary, persona, notes_path, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (slug) DO UPDATE
         SET display_name = excluded.display_name,
             summary = excluded.summary,
             persona = excluded.persona,
             notes_path = excluded.notes_path
         RETURNING id`),
		p.Slug, p.DisplayName, p.Summary, string(encoded), p.NotesPath, r.DB.timeArg(p.CreatedAt),
	).Scan(&p.ID)
}

const sessionColumns = `id, user_id, persona_id, status, rubric, started_at, ended_at`

// ActiveSession returns the most recently started active session for the
// user and persona, or nil when there is none.
func (r *Repository) ActiveSession(ctx context.Context, userID, personaID int64) (*pkg.Session, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.rebind(
		`SELECT `+sessionColumns+`
         FROM sim_sessions
         WHERE user_id = ? AND persona_id = ? AND status = ?
         ORDER BY started_at DESC
         LIMIT 1`),
		userID, personaID, string(pkg.StatusActive))
	return scanSession(row)
}

// GetSession returns the session with the given id, or nil when there is
// none.
func (r *Repository) GetSession(ctx context.Context, id string) (*pkg.Session, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.rebind(
		`SELECT `+sessionColumns+` FROM sim_sessions WHERE id = ?`), id)
	return scanSession(row)
}

// CreateSession stores a new session row.
func (r *Repository) CreateSession(ctx context.Context, s *pkg.Session) error {
	_, err := r.DB.ExecContext(ctx, r.DB.rebind(
		`INSERT INTO sim_sessions (id, user_id, persona_id, status, started_at)
         VALUES (?, ?, ?, ?, ?)`),
		s.ID, s.UserID, s.PersonaID, string(s.Status), r.DB.timeArg(s.StartedAt),
	)
	return err
}

// CompleteSession marks the session completed and stores its rubric.  It
// reports false when no session has the id.
func (r *Repository) CompleteSession(ctx context.Context, id string, rubric pkg.RubricRecord, endedAt time.Time) (bool, error) {
	encoded, err := json.Marshal(rubric)
	if err != nil {
		return false, fmt.Errorf("encode rubric: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, r.DB.rebind(
		`UPDATE sim_sessions
         SET status = ?, rubric = ?, ended_at = ?
         WHERE id = ?`),
		string(pkg.StatusCompleted), string(encoded), r.DB.timeArg(endedAt), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendEntry stores one transcript entry and sets its id.
func (r *Repository) AppendEntry(ctx context.Context, e *pkg.TranscriptEntry) error {
	var metadata any
	if len(e.Metadata) > 0 {
		encoded, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(encoded)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.DB.QueryRowContext(ctx, r.DB.rebind(
		`INSERT INTO sim_logs (session_id, role, message, metadata, created_at)
         VALUES (?, ?, ?, ?, ?)
         RETURNING id`),
		e.SessionID, string(e.Role), e.Message, metadata, r.DB.timeArg(e.CreatedAt),
	).Scan(&e.ID)
}

// RecentEntries returns the latest limit entries of the session, oldest
// first.
func (r *Repository) RecentEntries(ctx context.Context, sessionID string, limit int) ([]pkg.TranscriptEntry, error) {
	entries, err := r.queryEntries(ctx,
		`SELECT id, session_id, role, message, metadata, created_at
         FROM sim_logs
         WHERE session_id = ?
         ORDER BY id DESC
         LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Transcript returns every entry of the session in insertion order.
func (r *Repository) Transcript(ctx context.Context, sessionID string) ([]pkg.TranscriptEntry, error) {
	return r.queryEntries(ctx,
		`SELECT id, session_id, role, message, metadata, created_at
         FROM sim_logs
         WHERE session_id = ?
         ORDER BY id ASC`, sessionID)
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]pkg.TranscriptEntry, error) {
	rows, err := r.DB.QueryContext(ctx, r.DB.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []pkg.TranscriptEntry
	for rows.Next() {
		var (
			e         pkg.TranscriptEntry
			role      string
			metadata  []byte
			createdAt nullTime
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &role, &e.Message, &metadata, &createdAt); err != nil {
			return nil, err
		}
		e.Role = pkg.EntryRole(role)
		e.CreatedAt = createdAt.Time
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanSession(row *sql.Row) (*pkg.Session, error) {
	var (
		s                  pkg.Session
		status             string
		rubric             []byte
		startedAt, endedAt nullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PersonaID, &status, &rubric, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Status = pkg.SessionStatus(status)
	s.StartedAt = startedAt.Time
	s.EndedAt = endedAt.ptr()
	if len(rubric) > 0 {
		var record pkg.RubricRecord
		if err := json.Unmarshal(rubric, &record); err != nil {
			return nil, fmt.Errorf("decode rubric of session %s: %w", s.ID, err)
		}
		s.Rubric = &record
	}
	return &s, nil
}
