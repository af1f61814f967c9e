// Package notes turns sectioned clinical notes into personas.
//
// A note is plain text or a PDF.  Lines starting with a known heading ("Motivo de
// consulta", "Laboratorio", ...) open a section; the following lines belong
// to it until the next heading.  Text before the first heading is narrative.
package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"patientsim/pkg"
)

// Fallback texts of a persona built from sparse notes.
const (
	DefaultDisplayName  = "Paciente"
	DefaultSummary      = "Caso clínico para práctica de anamnesis."
	DefaultDemographics = "Estudiante recibe paciente sin datos identificatorios."
)

type section struct {
	key     string
	aliases []string
}

// sections lists the headings in matching order.  A heading matches when the
// lower-cased line starts with one of its aliases.
var sections = []section{
	{pkg.FieldDemographics, []string{"datos generales", "demografía", "identificación"}},
	{pkg.FieldChiefComplaint, []string{"motivo de consulta", "consulta"}},
	{pkg.FieldHistory, []string{"antecedentes", "historia", "hx"}},
	{pkg.FieldMedications, []string{"medicamentos", "tratamiento actual"}},
	{pkg.FieldAllergies, []string{"alergias"}},
	{pkg.FieldHabits, []string{"hábitos", "social"}},
	{pkg.FieldVitals, []string{"signos vitales", "vitales"}},
	{pkg.FieldPhysicalExam, []string{"examen físico", "ef"}},
	{pkg.FieldLabs, []string{"laboratorio", "lab", "labs"}},
	{pkg.FieldImaging, []string{"imagen", "imágenes", "estudios de imagen"}},
	{pkg.FieldImpression, []string{"impresión diagnóstica", "discusión"}},
	{pkg.FieldNarrative, []string{"narrativa", "resumen narrativo"}},
}

// Sections splits text into sections keyed by persona field.  Whitespace
// runs are collapsed and blank lines dropped.  A key is present when its
// heading appeared, even if no line followed it.
func Sections(text string) map[string][]string {
	out := map[string][]string{pkg.FieldNarrative: {}}
	current := pkg.FieldNarrative
	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}
		if key := detectSection(line); key != "" {
			current = key
			if _, ok := out[key]; !ok {
				out[key] = []string{}
			}
			continue
		}
		out[current] = append(out[current], line)
	}
	return out
}

func detectSection(line string) string {
	lower := strings.Trim(strings.ToLower(line), ": ")
	for _, s := range sections {
		for _, alias := range s.aliases {
			if strings.HasPrefix(lower, alias) {
				return s.key
			}
		}
	}
	return ""
}

// BuildPersona assembles a persona from parsed sections.  The display name
// is the first demographic line, the summary the chief complaint.
func BuildPersona(slug, notesPath string, parsed map[string][]string) *pkg.Persona {
	displayName := titleCase(strings.ReplaceAll(slug, "-", " "))
	if demo, ok := parsed[pkg.FieldDemographics]; ok {
		displayName = DefaultDisplayName
		if len(demo) > 0 {
			displayName = demo[0]
		}
	}

	summary := strings.Join(parsed[pkg.FieldChiefComplaint], " ")
	if summary == "" {
		summary = DefaultSummary
	}

	fields := make(map[string]string, len(sections))
	for _, s := range sections {
		fields[s.key] = strings.Join(parsed[s.key], "\n")
	}
	if fields[pkg.FieldDemographics] == "" {
		fields[pkg.FieldDemographics] = DefaultDemographics
	}

	return &pkg.Persona{
		Slug:        slug,
		DisplayName: displayName,
		Summary:     summary,
		Fields:      fields,
		NotesPath:   notesPath,
	}
}

// SlugFromPath derives a slug from a note's file name.
func SlugFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ToLower(strings.ReplaceAll(stem, " ", "-"))
}

// Load reads the note at path and builds its persona.  Files ending in
// .pdf have their page text extracted; anything else is read as UTF-8
// text.  An empty slug is derived from the file name.
func Load(path, slug string) (*pkg.Persona, error) {
	text, err := readNote(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("note %s is empty", path)
	}
	if slug == "" {
		slug = SlugFromPath(path)
	}
	return BuildPersona(slug, path, Sections(text)), nil
}

func readNote(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdfText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	return string(data), nil
}

// Export writes the persona's fields as indented JSON to dir/<slug>.json
// and returns the file path.
func Export(dir string, p *pkg.Persona) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Fields); err != nil {
		return "", fmt.Errorf("encode persona: %w", err)
	}
	out := filepath.Join(dir, p.Slug+".json")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write persona: %w", err)
	}
	return out, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
