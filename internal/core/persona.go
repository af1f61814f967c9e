package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"patientsim/pkg"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrNoActiveSession = errors.New("no active session")
)

// PersonaStore is a read-through cache in front of the persona table.
// Entries are cached by slug on first read and never invalidated within the
// process lifetime: personas are static while the bot runs.  Concurrent
// misses for the same slug may each hit the repository; the results are
// identical so the last write wins harmlessly.
type PersonaStore struct {
	repo PersonaRepository

	mu    sync.RWMutex
	cache map[string]*pkg.Persona
}

// NewPersonaStore constructs a PersonaStore over repo.
func NewPersonaStore(repo PersonaRepository) *PersonaStore {
	return &PersonaStore{
		repo:  repo,
		cache: make(map[string]*pkg.Persona),
	}
}

// Get returns the persona for slug, or ErrPersonaNotFound.  Callers must
// treat the returned value as read-only.
func (s *PersonaStore) Get(ctx context.Context, slug string) (*pkg.Persona, error) {
	s.mu.RLock()
	p, ok := s.cache[slug]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := s.repo.PersonaBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load persona %q: %w", slug, err)
	}
	if p == nil {
		return nil, ErrPersonaNotFound
	}
	if strings.TrimSpace(p.Summary) == "" {
		p.Summary = DefaultPersonaSummary
	}
	if p.Fields == nil {
		p.Fields = map[string]string{}
	}

	s.mu.Lock()
	s.cache[slug] = p
	s.mu.Unlock()
	return p, nil
}
