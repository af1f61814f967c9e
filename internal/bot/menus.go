package bot

import (
	"fmt"
	"strings"

	"patientsim/internal/core"
)

// Main menu callbacks.
const (
	MenuWeek       = "MENU_WEEK"
	MenuSyllabus   = "MENU_SYLLABUS"
	MenuIFOM       = "MENU_IFOM"
	MenuPatient    = "MENU_PATIENT"
	MenuBroadcasts = "MENU_BROADCASTS"
	MenuMain       = core.ActionMainMenu
)

const (
	startGreeting = "👋 ¡Hola %s! Soy CISEC Nexus, tu compañera académica. " +
		"Desde aquí encontrarás simulaciones clínicas, banco IFOM y recursos oficiales."
	defaultStudentName = "estudiante"
	// NotImplemented answers menu entries that have no feature behind them.
	NotImplemented = "🚧 Función en construcción."
)

// MainMenu lists the main menu options, one per row.
func MainMenu() core.Panel {
	return core.Panel{
		{Label: "📅 Semana académica", Data: MenuWeek},
		{Label: "📚 Sílabo y calificaciones", Data: MenuSyllabus},
		{Label: "🧪 Simulador IFOM", Data: MenuIFOM},
		{Label: "🩺 Paciente simulado", Data: MenuPatient},
		{Label: "📢 Novedades y avisos", Data: MenuBroadcasts},
	}
}

// StartMessage greets the student by first name.
func StartMessage(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = defaultStudentName
	}
	return fmt.Sprintf(startGreeting, name)
}
