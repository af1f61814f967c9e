package core

import (
	"fmt"
	"strings"

	"patientsim/pkg"
)

const patientInstructions = "Actúa como el paciente descrito en la historia clínica. " +
	"Responde en primera persona, con tono empático y coherente, siempre en español neutro. " +
	"Fundamenta tus respuestas únicamente en la información proporcionada; si algo no está documentado, admite desconocimiento o neutralidad. " +
	"Nunca reveles diagnósticos ni tratamientos ni sugieras decisiones médicas finales."

// Placeholders for undocumented persona sections.
const (
	missingDemographics   = "Paciente sin datos demográficos específicos."
	missingHistory        = "Sin antecedentes registrados."
	missingChiefComplaint = "Sin motivo de consulta declarado."
)

// BuildSystemPrompt renders the instruction that keeps the model in the
// patient's voice.  It is a pure function of the persona.
func BuildSystemPrompt(p *pkg.Persona) string {
	return fmt.Sprintf("%s\n\nDemografía: %s\nMotivo de consulta: %s\nAntecedentes: %s\nNarrativa adicional: %s",
		patientInstructions,
		fieldOr(p, pkg.FieldDemographics, missingDemographics),
		fieldOr(p, pkg.FieldChiefComplaint, missingChiefComplaint),
		fieldOr(p, pkg.FieldHistory, missingHistory),
		fieldOr(p, pkg.FieldNarrative, ""),
	)
}

func fieldOr(p *pkg.Persona, key, fallback string) string {
	if v := strings.TrimSpace(p.Field(key)); v != "" {
		return v
	}
	return fallback
}
