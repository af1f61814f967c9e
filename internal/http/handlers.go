package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"patientsim/internal/bot"
	"patientsim/internal/core"
	"patientsim/pkg"
)

// UpdateHandler processes chat updates.
type UpdateHandler interface {
	Handle(ctx context.Context, u bot.Update) ([]core.Reply, error)
}

// SessionReader loads sessions and their transcripts for instructors.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*pkg.Session, error)
	Transcript(ctx context.Context, sessionID string) ([]pkg.TranscriptEntry, error)
}

// CompletionListener yields the ids of completed sessions.
type CompletionListener interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Updates   UpdateHandler
	Sessions  SessionReader
	Completed CompletionListener
	// Heartbeat is the interval of SSE keep-alive comments.
	Heartbeat time.Duration
}

// NewRouter wires the HTTP routes.
func NewRouter(s *Server) http.Handler {
	if s.Heartbeat <= 0 {
		s.Heartbeat = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/updates", s.handleUpdate)
		api.Get("/ws", s.handleWebSocket)
		api.Get("/sessions/events", s.handleCompletionEvents)
		api.Get("/sessions/{sessionID}", s.handleSession)
	})
	return r
}

// handleUpdate feeds one chat update to the dispatcher and returns the
// replies to deliver.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u bot.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		respondError(w, http.StatusBadRequest, "invalid update payload")
		return
	}
	if msg := validateUpdate(u); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	replies, err := s.Updates.Handle(r.Context(), u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}
	if replies == nil {
		replies = []core.Reply{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

// validateUpdate returns the client error for an unusable update, or "".
func validateUpdate(u bot.Update) string {
	if u.UserID == 0 {
		return "user_id is required"
	}
	switch u.Kind {
	case bot.KindCommand, bot.KindCallback, bot.KindMessage:
		return ""
	}
	return "unknown update kind"
}

// handleSession returns a session with its full transcript.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session", sessionID).Error("load session")
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	transcript, err := s.Sessions.Transcript(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session", sessionID).Error("load transcript")
		respondError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if transcript == nil {
		transcript = []pkg.TranscriptEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session":    sess,
		"transcript": transcript,
	})
}

// handleCompletionEvents streams a session_completed event for every
// session that completes while the client is connected.
func (s *Server) handleCompletionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := r.Context()
	completed, err := s.Completed.Listen(ctx)
	if err != nil {
		logrus.WithError(err).Error("listen for completed sessions")
		respondError(w, http.StatusServiceUnavailable, "notifications unavailable")
		return
	}

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	sendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"})

	ticker := time.NewTicker(s.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-completed:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "session_completed", map[string]string{"session_id": id})
		case <-ticker.C:
			sendSSEComment(w, flusher, "heartbeat")
		}
	}
}
