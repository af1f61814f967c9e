package core

import (
	"context"
	"errors"
	"testing"

	"patientsim/pkg"
)

func TestGetOrCreateActiveReusesUntilClosed(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	notifier := &recordingNotifier{}
	mgr := NewSessionManager(repo, notifier)

	first, err := mgr.GetOrCreateActive(ctx, 42, 1)
	if err != nil {
		t.Fatalf("GetOrCreateActive err: %v", err)
	}
	second, err := mgr.GetOrCreateActive(ctx, 42, 1)
	if err != nil {
		t.Fatalf("GetOrCreateActive err: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected reuse, got %s and %s", first.ID, second.ID)
	}
	if first.Status != pkg.StatusActive {
		t.Fatalf("unexpected status %s", first.Status)
	}

	other, _ := mgr.GetOrCreateActive(ctx, 43, 1)
	if other.ID == first.ID {
		t.Fatal("different users must not share a session")
	}

	if found, err := mgr.Close(ctx, first.ID, pkg.RubricRecord{Raw: "{}"}); err != nil || !found {
		t.Fatalf("Close: found=%v err=%v", found, err)
	}
	third, _ := mgr.GetOrCreateActive(ctx, 42, 1)
	if third.ID == first.ID {
		t.Fatal("expected a new session after close")
	}

	closed := repo.session(first.ID)
	if closed.Status != pkg.StatusCompleted || closed.Rubric == nil || closed.EndedAt == nil {
		t.Fatalf("session not completed: %+v", closed)
	}
	if len(notifier.ids) != 1 || notifier.ids[0] != first.ID {
		t.Fatalf("expected one notification for %s, got %v", first.ID, notifier.ids)
	}
}

func TestCloseUnknownSessionIsNoop(t *testing.T) {
	notifier := &recordingNotifier{}
	mgr := NewSessionManager(newMemRepo(), notifier)
	if found, err := mgr.Close(context.Background(), "missing", pkg.RubricRecord{}); err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}
	if len(notifier.ids) != 0 {
		t.Fatalf("no notification expected, got %v", notifier.ids)
	}
}

func TestCloseIgnoresNotifierFailure(t *testing.T) {
	ctx := context.Background()
	mgr := NewSessionManager(newMemRepo(), &recordingNotifier{err: errors.New("listener gone")})
	s, _ := mgr.GetOrCreateActive(ctx, 1, 1)
	if _, err := mgr.Close(ctx, s.ID, pkg.RubricRecord{}); err != nil {
		t.Fatalf("notifier failure must not fail close: %v", err)
	}
}

func TestPersonaStoreCachesBySlug(t *testing.T) {
	ctx := context.Background()
	p := testPersona()
	p.Summary = ""
	repo := newMemRepo(p)
	store := NewPersonaStore(repo)

	got, err := store.Get(ctx, "sofia-gastro")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Summary != DefaultPersonaSummary {
		t.Fatalf("expected default summary, got %q", got.Summary)
	}
	store.Get(ctx, "sofia-gastro")
	if repo.personaHits != 1 {
		t.Fatalf("expected a single repository read, got %d", repo.personaHits)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}
