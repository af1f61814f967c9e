package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"patientsim/pkg"
)

// CompletionNotifier is told about every session that completes.
type CompletionNotifier interface {
	Notify(ctx context.Context, sessionID string) error
}

// SessionManager owns session creation and the active → completed
// transition.
type SessionManager struct {
	repo     SessionRepository
	notifier CompletionNotifier
	now      func() time.Time
}

// NewSessionManager constructs a SessionManager.  notifier may be nil.
func NewSessionManager(repo SessionRepository, notifier CompletionNotifier) *SessionManager {
	return &SessionManager{repo: repo, notifier: notifier, now: time.Now}
}

// GetOrCreateActive reuses the most recent active session of the user for
// the persona, or starts a new one.
func (m *SessionManager) GetOrCreateActive(ctx context.Context, userID, personaID int64) (*pkg.Session, error) {
	existing, err := m.repo.ActiveSession(ctx, userID, personaID)
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	s := &pkg.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		PersonaID: personaID,
		Status:    pkg.StatusActive,
		StartedAt: m.now().UTC(),
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logrus.WithFields(logrus.Fields{"session": s.ID, "user": userID, "persona": personaID}).Info("simulation session created")
	return s, nil
}

// Close completes the session and stores its rubric.  It reports false,
// without error, when the session no longer exists.
func (m *SessionManager) Close(ctx context.Context, sessionID string, rubric pkg.RubricRecord) (bool, error) {
	found, err := m.repo.CompleteSession(ctx, sessionID, rubric, m.now().UTC())
	if err != nil {
		return false, fmt.Errorf("complete session %s: %w", sessionID, err)
	}
	if !found {
		logrus.WithField("session", sessionID).Warn("close of unknown session ignored")
		return false, nil
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, sessionID); err != nil {
			logrus.WithError(err).WithField("session", sessionID).Warn("completion notification failed")
		}
	}
	return true, nil
}
