package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"patientsim/internal/core"
)

type call struct {
	op, arg string
	conv    core.Conversation
}

// fakeSim records calls and mimics the session reference handling of the
// real simulator.
type fakeSim struct {
	mu    sync.Mutex
	calls []call
	err   error
	delay time.Duration
}

func (f *fakeSim) record(op, arg string, conv *core.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, arg: arg, conv: *conv})
}

func (f *fakeSim) Start(_ context.Context, conv *core.Conversation, slug string) (core.Reply, error) {
	f.record("start", slug, conv)
	if f.err != nil {
		return core.Reply{}, f.err
	}
	if slug == "" {
		slug = "sofia-gastro"
	}
	conv.SessionID, conv.PersonaSlug = "s-1", slug
	return core.Reply{Text: "caso " + slug, Panel: core.PatientPanel()}, nil
}

func (f *fakeSim) Panel(_ context.Context, conv *core.Conversation, action string) (core.Reply, error) {
	f.record("panel", action, conv)
	if action == core.ActionEnd {
		conv.Clear()
	}
	return core.Reply{Text: action}, nil
}

func (f *fakeSim) Message(_ context.Context, conv *core.Conversation, text string) (core.Reply, error) {
	f.record("message", text, conv)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return core.Reply{}, f.err
	}
	if strings.TrimSpace(text) == "" {
		return core.Reply{}, nil
	}
	return core.Reply{Text: "eco " + text}, nil
}

func (f *fakeSim) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestStartMessageIncludesName(t *testing.T) {
	if text := StartMessage("Ana"); !strings.Contains(text, "Ana") {
		t.Fatalf("greeting should include the name: %q", text)
	}
	if text := StartMessage("  "); !strings.Contains(text, "estudiante") {
		t.Fatalf("greeting should fall back to a generic name: %q", text)
	}
}

func TestMainMenuOptions(t *testing.T) {
	menu := MainMenu()
	if len(menu) != 5 {
		t.Fatalf("expected 5 options, got %d", len(menu))
	}
	seen := map[string]bool{}
	for _, a := range menu {
		if !strings.HasPrefix(a.Data, "MENU_") || seen[a.Data] {
			t.Fatalf("unexpected option %+v", a)
		}
		seen[a.Data] = true
	}
	if !seen[MenuPatient] {
		t.Fatal("patient simulation must be reachable from the main menu")
	}
}

func TestDispatcherRouting(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{}
	d := NewDispatcher(sim, NewConversationStore())

	replies, err := d.Handle(ctx, Update{UserID: 1, ChatID: 10, Kind: KindCommand, Data: "/start", FirstName: "Ana"})
	if err != nil || len(replies) != 1 {
		t.Fatalf("start: %v, %d replies", err, len(replies))
	}
	if !strings.Contains(replies[0].Text, "Ana") || len(replies[0].Panel) != 5 {
		t.Fatalf("unexpected start reply %+v", replies[0])
	}
	if len(sim.calls) != 0 {
		t.Fatal("start command must not touch the simulator")
	}

	replies, _ = d.Handle(ctx, Update{UserID: 1, ChatID: 10, Kind: KindCallback, Data: MenuPatient})
	if replies[0].Text != "caso sofia-gastro" {
		t.Fatalf("unexpected patient reply %+v", replies[0])
	}
	if c := sim.last(); c.op != "start" || c.arg != "" || c.conv.UserID != 1 || c.conv.ChatID != 10 {
		t.Fatalf("unexpected start call %+v", c)
	}

	d.Handle(ctx, Update{UserID: 1, ChatID: 10, Kind: KindMessage, Text: "Hola"})
	if c := sim.last(); c.op != "message" || c.conv.SessionID != "s-1" {
		t.Fatalf("conversation context not carried over: %+v", c)
	}

	d.Handle(ctx, Update{UserID: 1, Kind: KindCallback, Data: core.ActionLabs})
	if c := sim.last(); c.op != "panel" || c.arg != core.ActionLabs || c.conv.ChatID != 10 {
		t.Fatalf("unexpected panel call %+v", c)
	}

	d.Handle(ctx, Update{UserID: 1, Kind: KindCallback, Data: core.ActionEnd})
	d.Handle(ctx, Update{UserID: 1, Kind: KindMessage, Text: "¿sigue ahí?"})
	if c := sim.last(); c.conv.SessionID != "" {
		t.Fatalf("session reference should be cleared after the end panel: %+v", c)
	}

	d.Handle(ctx, Update{UserID: 1, Kind: KindCallback, Data: MenuPatient + ":carlos-cardio"})
	if c := sim.last(); c.op != "start" || c.arg != "carlos-cardio" {
		t.Fatalf("unexpected slug start %+v", c)
	}
}

func TestDispatcherMenus(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{}
	d := NewDispatcher(sim, NewConversationStore())

	for _, data := range []string{MenuWeek, MenuSyllabus, MenuIFOM, MenuBroadcasts} {
		replies, err := d.Handle(ctx, Update{UserID: 2, Kind: KindCallback, Data: data})
		if err != nil || len(replies) != 1 || replies[0].Text != NotImplemented {
			t.Fatalf("%s: unexpected replies %+v, %v", data, replies, err)
		}
	}

	replies, _ := d.Handle(ctx, Update{UserID: 2, Kind: KindCallback, Data: MenuMain, FirstName: "Luis"})
	if len(replies) != 1 || !strings.Contains(replies[0].Text, "Luis") {
		t.Fatalf("main menu callback should greet: %+v", replies)
	}

	for _, data := range []string{"PATIENT_UNKNOWN", "DOC_1", ""} {
		replies, err := d.Handle(ctx, Update{UserID: 2, Kind: KindCallback, Data: data})
		if err != nil || len(replies) != 0 {
			t.Fatalf("%q: expected silent acknowledgement, got %+v, %v", data, replies, err)
		}
	}
	if len(sim.calls) != 0 {
		t.Fatalf("menus must not reach the simulator: %+v", sim.calls)
	}

	replies, _ = d.Handle(ctx, Update{UserID: 2, Kind: KindMessage, Text: "  "})
	if len(replies) != 0 {
		t.Fatalf("blank message should produce no reply: %+v", replies)
	}
}

func TestDispatcherErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	sim := &fakeSim{err: boom}
	store := NewConversationStore()
	d := NewDispatcher(sim, store)

	if _, err := d.Handle(ctx, Update{Kind: KindMessage, Text: "x"}); err == nil {
		t.Fatal("expected error for missing user")
	}
	if _, err := d.Handle(ctx, Update{UserID: 3, Kind: "poll"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := d.Handle(ctx, Update{UserID: 3, Kind: KindCallback, Data: MenuPatient}); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if conv := store.Load(3, 0); conv.Active() {
		t.Fatal("failed update must not save the conversation")
	}
}

func TestDispatcherSerialisesUser(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{delay: 20 * time.Millisecond}
	d := NewDispatcher(sim, NewConversationStore())

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Handle(ctx, Update{UserID: 4, Kind: KindMessage, Text: "hola"})
		}()
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("updates of one user ran concurrently (%s)", elapsed)
	}
}
