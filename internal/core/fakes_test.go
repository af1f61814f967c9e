package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"patientsim/internal/llm"
	"patientsim/pkg"
)

// memRepo is an in-memory implementation of the three repositories.
type memRepo struct {
	mu          sync.Mutex
	personas    map[string]*pkg.Persona
	sessions    []*pkg.Session
	entries     []pkg.TranscriptEntry
	nextID      int64
	personaHits int
	failAppend  error
}

func newMemRepo(personas ...pkg.Persona) *memRepo {
	r := &memRepo{personas: make(map[string]*pkg.Persona)}
	for i := range personas {
		p := personas[i]
		r.personas[p.Slug] = &p
	}
	return r
}

func (r *memRepo) PersonaBySlug(_ context.Context, slug string) (*pkg.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personaHits++
	p, ok := r.personas[slug]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) ActiveSession(_ context.Context, userID, personaID int64) (*pkg.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sessions) - 1; i >= 0; i-- {
		s := r.sessions[i]
		if s.UserID == userID && s.PersonaID == personaID && s.Status == pkg.StatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CreateSession(_ context.Context, s *pkg.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions = append(r.sessions, &cp)
	return nil
}

func (r *memRepo) CompleteSession(_ context.Context, id string, rubric pkg.RubricRecord, endedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			s.Status = pkg.StatusCompleted
			rc := rubric
			s.Rubric = &rc
			s.EndedAt = &endedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) AppendEntry(_ context.Context, e *pkg.TranscriptEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	r.nextID++
	e.ID = r.nextID
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memRepo) RecentEntries(_ context.Context, sessionID string, limit int) ([]pkg.TranscriptEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []pkg.TranscriptEntry
	for _, e := range r.entries {
		if e.SessionID == sessionID {
			all = append(all, e)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memRepo) session(id string) *pkg.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (r *memRepo) sessionEntries(id string) []pkg.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pkg.TranscriptEntry
	for _, e := range r.entries {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out
}

// fakeLLM returns canned replies and records requests.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type recordingNotifier struct {
	ids []string
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, id string) error {
	n.ids = append(n.ids, id)
	return n.err
}

var errTransport = errors.New("connection refused")

func testPersona() pkg.Persona {
	return pkg.Persona{
		ID:          1,
		Slug:        "sofia-gastro",
		DisplayName: "Sofía",
		Summary:     "Dolor abdominal de 3 días.",
		Fields: map[string]string{
			pkg.FieldDemographics:   "Mujer de 34 años, contadora.",
			pkg.FieldChiefComplaint: "Dolor en epigastrio.",
			pkg.FieldLabs:           "Hb 12.1 g/dL; leucocitos 11 200/µL; lipasa normal.",
		},
	}
}
