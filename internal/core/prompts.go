package core

// prompts.go defines the Spanish texts used by the patient simulation: user
// visible alerts, panel fallbacks, the evaluation rubric labels and the
// instruction sent to the evaluator.  Keeping them here makes them easy to
// tweak without touching the state machine.

const (
	// Disclaimer prefixes every simulated patient reply.
	Disclaimer = "⚠️ Simulación educativa: la información proviene de notas académicas ficticias. " +
		"No constituye diagnóstico ni tratamiento real."

	// PatientGuide closes the greeting shown when a session starts.
	PatientGuide = "Puedes conversar libremente conmigo como paciente simulado. " +
		"Pregunta por antecedentes, hábitos, domicilio, síntomas o lo que necesites para tu anamnesis."

	// SessionStartedNote is the audit entry recorded on start.
	SessionStartedNote = "Sesión iniciada"

	// DefaultPersonaSummary replaces an empty case summary.
	DefaultPersonaSummary = "Caso clínico en simulación."

	PersonaNotFound = "No se encontró el caso clínico disponible en este momento."
	NoActiveSession = "No hay una simulación activa. Vuelve al menú principal e inicia el caso para continuar."

	// TurnFallback is the in-character reply used when the model service
	// fails during a conversational turn.
	TurnFallback = "Estoy un poco confundida, ¿podrías repetir la pregunta?"

	PanelEmpty        = "Sin información registrada."
	PanelLabsEmpty    = "Sin datos de laboratorio disponibles."
	PanelImagingEmpty = "Sin estudios de imagen disponibles."
	PanelExamEmpty    = "Sin examen físico registrado."

	EvalHeader        = "📊 Evaluación formativa (0–2 por dimensión)"
	EvalSummaryPrefix = "Síntesis:"
	EvalReminder      = "Continúa profundizando tus hipótesis y planes sin adelantar diagnósticos ni tratamientos definitivos."
	// EvalFallback is both the evaluation-call fallback and the body of a
	// degraded rubric when the model output is blank.
	EvalFallback      = "No fue posible generar la retroalimentación en este momento."
	EvalEmptyFeedback = "Sin observaciones registradas."

	// EvaluationInstruction asks the evaluator for a JSON-only rubric with
	// five dimensions scored 0 to 2, feedback and a summary, and forbids
	// diagnosis or treatment content.
	EvaluationInstruction = "Eres tutora clínica. Evalúa la interacción según la conversación previa. " +
		"Para cada dimensión (anamnesis, hipótesis, examen físico, uso de pruebas, próximos pasos) " +
		"asigna una puntuación entre 0 y 2 y proporciona una retroalimentación breve. " +
		"Devuelve únicamente un objeto JSON sin formato Markdown con la siguiente estructura: " +
		`{"anamnesis":{"score":0-2,"feedback":"..."},` +
		`"hipotesis":{...},"examen_fisico":{...},"uso_pruebas":{...},"proximos_pasos":{...},` +
		`"resumen":"comentario final sin diagnóstico ni tratamiento"}. ` +
		"No repitas instrucciones y responde siempre en español neutro."
)

// Action labels of the patient panel and the menu.
const (
	LabelLabs     = "Laboratorios"
	LabelImaging  = "Imágenes"
	LabelExam     = "Examen físico"
	LabelEnd      = "Terminar caso"
	LabelMainMenu = "Menú principal"
)
