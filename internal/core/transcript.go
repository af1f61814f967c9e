package core

import (
	"context"
	"fmt"
	"time"

	"patientsim/internal/llm"
	"patientsim/pkg"
)

// DefaultHistoryLimit caps how many transcript entries feed a model call.
const DefaultHistoryLimit = 12

// TranscriptLog is the append-only log of a session.
type TranscriptLog struct {
	repo TranscriptRepository
	now  func() time.Time
}

// NewTranscriptLog constructs a TranscriptLog over repo.
func NewTranscriptLog(repo TranscriptRepository) *TranscriptLog {
	return &TranscriptLog{repo: repo, now: time.Now}
}

// Append records one entry.
func (l *TranscriptLog) Append(ctx context.Context, sessionID string, role pkg.EntryRole, message string, metadata map[string]any) error {
	e := &pkg.TranscriptEntry{
		SessionID: sessionID,
		Role:      role,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.AppendEntry(ctx, e); err != nil {
		return fmt.Errorf("append %s entry: %w", role, err)
	}
	return nil
}

// RecentHistory returns up to limit of the latest entries, oldest first.
// Older context is dropped silently.  A non-positive limit means
// DefaultHistoryLimit.
func (l *TranscriptLog) RecentHistory(ctx context.Context, sessionID string, limit int) ([]pkg.TranscriptEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := l.repo.RecentEntries(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// ToModelMessages keeps the student and patient entries, in order, tagged
// with the model's user/assistant roles.
func ToModelMessages(entries []pkg.TranscriptEntry) []llm.Message {
	messages := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case pkg.RoleStudent:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: e.Message})
		case pkg.RolePatient:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: e.Message})
		}
	}
	return messages
}
