package pkg

import "time"

// Persona is a clinical case used to ground the simulated patient.  Fields
// holds the named narrative sections (demographics, chief complaint, labs,
// ...) keyed by the Field* constants below.
type Persona struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	DisplayName string            `json:"display_name"`
	Summary     string            `json:"summary"`
	Fields      map[string]string `json:"persona"`
	NotesPath   string            `json:"notes_path,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Field returns a narrative section, or "" when absent.
func (p *Persona) Field(key string) string {
	if p == nil || p.Fields == nil {
		return ""
	}
	return p.Fields[key]
}

// Narrative section keys.  They match the section names produced by the
// clinical-note parser and stored in the personas table.
const (
	FieldDemographics   = "demografia"
	FieldChiefComplaint = "motivo_consulta"
	FieldHistory        = "antecedentes"
	FieldMedications    = "medicamentos"
	FieldAllergies      = "alergias"
	FieldHabits         = "habitos"
	FieldVitals         = "vitales"
	FieldPhysicalExam   = "examen_fisico"
	FieldLabs           = "laboratorios"
	FieldImaging        = "imagenes"
	FieldImpression     = "impresion"
	FieldNarrative      = "narrativa"
)

// SessionStatus is the lifecycle state of a simulation session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Session is one student's attempt at interviewing a persona.
type Session struct {
	ID        string        `json:"id"`
	UserID    int64         `json:"user_id"`
	PersonaID int64         `json:"persona_id"`
	Status    SessionStatus `json:"status"`
	Rubric    *RubricRecord `json:"rubric,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// EntryRole describes who produced a transcript entry.  Only student and
// patient entries are sent to the model; system and panel entries are audit
// records.
type EntryRole string

const (
	RoleSystem  EntryRole = "system"
	RoleStudent EntryRole = "student"
	RolePatient EntryRole = "patient"
	RolePanel   EntryRole = "panel"
)

// TranscriptEntry is one immutable event logged within a session.
type TranscriptEntry struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	Role      EntryRole      `json:"role"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DimensionScore is the score and feedback for one rubric dimension.
type DimensionScore struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Rubric is the structured evaluation produced at the end of a session.
// Error is set to "unparsed" when the evaluator output could not be read, in
// which case Dimensions is empty.
type Rubric struct {
	Dimensions map[string]DimensionScore `json:"dimensions,omitempty"`
	Summary    string                    `json:"summary,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// RubricRecord is what gets persisted on the session row: the raw model
// output kept for auditability next to its parsed form.
type RubricRecord struct {
	Raw         string    `json:"raw"`
	Parsed      Rubric    `json:"parsed"`
	GeneratedAt time.Time `json:"generated_at"`
}
