package core

// Callback data carried by the actions this package renders.
const (
	ActionLabs     = "PATIENT_LABS"
	ActionImaging  = "PATIENT_IMAGES"
	ActionExam     = "PATIENT_EXAM"
	ActionEnd      = "PATIENT_END"
	ActionMainMenu = "MENU_MAIN"
)

// Conversation is the per-conversation context the transport adapter
// populates for every incoming event.  The simulator reads and updates it;
// the adapter persists it between events.  It only references the session
// by id so that a stale record is never carried across turns.
type Conversation struct {
	UserID      int64  `json:"user_id"`
	ChatID      int64  `json:"chat_id"`
	SessionID   string `json:"session_id,omitempty"`
	PersonaSlug string `json:"persona_slug,omitempty"`
}

// Active reports whether the conversation references a running session.
func (c *Conversation) Active() bool {
	return c != nil && c.SessionID != "" && c.PersonaSlug != ""
}

// Clear forgets the session reference.
func (c *Conversation) Clear() {
	c.SessionID = ""
	c.PersonaSlug = ""
}

// Action is one single-choice button of a panel.
type Action struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Panel is an ordered list of actions, rendered one per row.
type Panel []Action

// PatientPanel is shown with every in-session reply.
func PatientPanel() Panel {
	return Panel{
		{Label: LabelLabs, Data: ActionLabs},
		{Label: LabelImaging, Data: ActionImaging},
		{Label: LabelExam, Data: ActionExam},
		{Label: LabelEnd, Data: ActionEnd},
	}
}

// BackToMenuPanel is shown after a session ends.
func BackToMenuPanel() Panel {
	return Panel{{Label: LabelMainMenu, Data: ActionMainMenu}}
}

// Reply is what the simulator asks the transport to show.  Alert replies are
// short notices acknowledging an interaction rather than new messages.  A
// zero Reply means there is nothing to send.
type Reply struct {
	Text  string `json:"text"`
	Panel Panel  `json:"panel,omitempty"`
	Alert bool   `json:"alert,omitempty"`
}

// Empty reports whether the reply carries nothing to show.
func (r Reply) Empty() bool {
	return r.Text == ""
}

func alert(text string) Reply {
	return Reply{Text: text, Alert: true}
}
