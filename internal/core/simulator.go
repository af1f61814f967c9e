package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"patientsim/pkg"
)

// Audit truncation, in characters.
const (
	panelAuditChars      = 60
	evaluationAuditChars = 120
)

// SimulatorConfig holds the tunables of the orchestrator.
type SimulatorConfig struct {
	DefaultPersona string
	HistoryLimit   int
	Generation     GenerationParams
}

// Simulator drives a simulated patient interview through its states:
// no session → active (Start), active → active (Panel, Message) and
// active → completed (Terminate).  Every call receives the conversation
// context explicitly and may update it.
type Simulator struct {
	personas   *PersonaStore
	sessions   *SessionManager
	transcript *TranscriptLog
	gateway    *Gateway
	cfg        SimulatorConfig
	now        func() time.Time
}

// NewSimulator wires the simulation components together.
func NewSimulator(personas *PersonaStore, sessions *SessionManager, transcript *TranscriptLog, gateway *Gateway, cfg SimulatorConfig) *Simulator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Simulator{
		personas:   personas,
		sessions:   sessions,
		transcript: transcript,
		gateway:    gateway,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start opens (or resumes) the session of the conversation's user for the
// persona identified by slug, or the default persona when slug is empty.
func (s *Simulator) Start(ctx context.Context, conv *Conversation, slug string) (Reply, error) {
	if slug == "" {
		slug = s.cfg.DefaultPersona
	}
	persona, err := s.personas.Get(ctx, slug)
	if errors.Is(err, ErrPersonaNotFound) {
		return alert(PersonaNotFound), nil
	}
	if err != nil {
		return Reply{}, err
	}

	session, err := s.sessions.GetOrCreateActive(ctx, conv.UserID, persona.ID)
	if err != nil {
		return Reply{}, err
	}
	conv.SessionID = session.ID
	conv.PersonaSlug = persona.Slug

	if err := s.transcript.Append(ctx, session.ID, pkg.RoleSystem, SessionStartedNote, nil); err != nil {
		return Reply{}, err
	}

	text := strings.Join([]string{
		"🩺 Caso simulado: " + persona.DisplayName,
		persona.Summary,
		"",
		PatientGuide,
	}, "\n")
	return Reply{Text: text, Panel: PatientPanel()}, nil
}

// Panel shows one informational view of the case (labs, imaging or exam)
// without leaving the session.  ActionEnd is routed to Terminate.
func (s *Simulator) Panel(ctx context.Context, conv *Conversation, action string) (Reply, error) {
	if action == ActionEnd {
		return s.Terminate(ctx, conv)
	}
	persona, err := s.resolve(ctx, conv)
	if errors.Is(err, ErrNoActiveSession) {
		return alert(NoActiveSession), nil
	}
	if err != nil {
		return Reply{}, err
	}

	text := panelContent(persona, action)
	if err := s.transcript.Append(ctx, conv.SessionID, pkg.RolePanel, action+":"+truncate(text, panelAuditChars), map[string]any{"panel": action}); err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Panel: PatientPanel()}, nil
}

// Message handles one student question and returns the patient's answer
// prefixed with the educational disclaimer.  Blank input yields an empty
// reply.
func (s *Simulator) Message(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	persona, err := s.resolve(ctx, conv)
	if errors.Is(err, ErrNoActiveSession) {
		return alert(NoActiveSession), nil
	}
	if err != nil {
		return Reply{}, err
	}

	userText := strings.TrimSpace(text)
	if userText == "" {
		return Reply{}, nil
	}

	if err := s.transcript.Append(ctx, conv.SessionID, pkg.RoleStudent, userText, nil); err != nil {
		return Reply{}, err
	}
	history, err := s.transcript.RecentHistory(ctx, conv.SessionID, s.cfg.HistoryLimit)
	if err != nil {
		return Reply{}, err
	}

	reply := s.gateway.Converse(ctx, persona, ToModelMessages(history), userText, s.cfg.Generation)

	if err := s.transcript.Append(ctx, conv.SessionID, pkg.RolePatient, reply, nil); err != nil {
		return Reply{}, err
	}
	return Reply{Text: Disclaimer + "\n\n" + reply}, nil
}

// Terminate grades the conversation, stores the rubric, completes the
// session and clears it from the conversation.
func (s *Simulator) Terminate(ctx context.Context, conv *Conversation) (Reply, error) {
	persona, err := s.resolve(ctx, conv)
	if errors.Is(err, ErrNoActiveSession) {
		return alert(NoActiveSession), nil
	}
	if err != nil {
		return Reply{}, err
	}
	sessionID := conv.SessionID

	history, err := s.transcript.RecentHistory(ctx, sessionID, s.cfg.HistoryLimit)
	if err != nil {
		return Reply{}, err
	}

	raw := s.gateway.Evaluate(ctx, persona, ToModelMessages(history), EvaluationInstruction)
	eval := ParseEvaluation(raw)
	if eval.Degraded() {
		logrus.WithField("session", sessionID).Warn("evaluation output could not be parsed")
	}

	record := pkg.RubricRecord{Raw: raw, Parsed: eval.Rubric, GeneratedAt: s.now().UTC()}
	found, err := s.sessions.Close(ctx, sessionID, record)
	if err != nil {
		return Reply{}, err
	}
	// A vanished session has no row left to attach the audit entry to.
	if found {
		if err := s.transcript.Append(ctx, sessionID, pkg.RoleSystem, "evaluacion:"+truncate(eval.Text, evaluationAuditChars), map[string]any{"status": string(eval.Status)}); err != nil {
			return Reply{}, err
		}
	}

	conv.Clear()
	return Reply{Text: eval.Text, Panel: BackToMenuPanel()}, nil
}

// resolve returns the persona of the conversation's running session, or
// ErrNoActiveSession.
func (s *Simulator) resolve(ctx context.Context, conv *Conversation) (*pkg.Persona, error) {
	if !conv.Active() {
		return nil, ErrNoActiveSession
	}
	persona, err := s.personas.Get(ctx, conv.PersonaSlug)
	if errors.Is(err, ErrPersonaNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("resolve persona: %w", err)
	}
	return persona, nil
}

func panelContent(p *pkg.Persona, action string) string {
	var key, empty string
	switch action {
	case ActionLabs:
		key, empty = pkg.FieldLabs, PanelLabsEmpty
	case ActionImaging:
		key, empty = pkg.FieldImaging, PanelImagingEmpty
	case ActionExam:
		key, empty = pkg.FieldPhysicalExam, PanelExamEmpty
	default:
		return PanelEmpty
	}
	if v := p.Field(key); strings.TrimSpace(v) != "" {
		return v
	}
	return empty
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
