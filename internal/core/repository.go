package core

import (
	"context"
	"time"

	"patientsim/pkg"
)

// PersonaRepository reads personas.  PersonaBySlug returns nil, nil when no
// persona has the slug.
type PersonaRepository interface {
	PersonaBySlug(ctx context.Context, slug string) (*pkg.Persona, error)
}

// SessionRepository persists simulation sessions.
type SessionRepository interface {
	// ActiveSession returns the most recently started active session for
	// the pair, or nil, nil when there is none.
	ActiveSession(ctx context.Context, userID, personaID int64) (*pkg.Session, error)
	CreateSession(ctx context.Context, s *pkg.Session) error
	// CompleteSession marks the session completed and stores the rubric.
	// It reports false when the session does not exist.
	CompleteSession(ctx context.Context, sessionID string, rubric pkg.RubricRecord, endedAt time.Time) (bool, error)
}

// TranscriptRepository persists transcript entries.
type TranscriptRepository interface {
	AppendEntry(ctx context.Context, e *pkg.TranscriptEntry) error
	// RecentEntries returns at most limit entries, the most recent ones,
	// ordered oldest first.
	RecentEntries(ctx context.Context, sessionID string, limit int) ([]pkg.TranscriptEntry, error)
}
