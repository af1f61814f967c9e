package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"patientsim/pkg"
)

const sampleNote = `Paciente acude acompañada.

Datos generales:
  Sofía Ramírez,   34 años
Contadora, vive en Quito.
Motivo de consulta
Dolor en epigastrio de 3 días.
Antecedentes:
Gastritis en 2019.
LABORATORIO:
Hb 12.1 g/dL
Lipasa normal
Examen físico:
`

func TestSections(t *testing.T) {
	got := Sections(sampleNote)

	if n := got[pkg.FieldNarrative]; len(n) != 1 || n[0] != "Paciente acude acompañada." {
		t.Fatalf("unexpected narrative %q", n)
	}
	if d := got[pkg.FieldDemographics]; len(d) != 2 || d[0] != "Sofía Ramírez, 34 años" {
		t.Fatalf("whitespace not normalised: %q", d)
	}
	if l := got[pkg.FieldLabs]; len(l) != 2 || l[1] != "Lipasa normal" {
		t.Fatalf("unexpected labs %q", l)
	}
	if exam, ok := got[pkg.FieldPhysicalExam]; !ok || len(exam) != 0 {
		t.Fatalf("empty section should be present: %q, %v", exam, ok)
	}
	if _, ok := got[pkg.FieldImaging]; ok {
		t.Fatal("absent heading must not create a section")
	}
}

func TestBuildPersona(t *testing.T) {
	p := BuildPersona("sofia-gastro", "notes/sofia.txt", Sections(sampleNote))

	if p.DisplayName != "Sofía Ramírez, 34 años" {
		t.Errorf("unexpected display name %q", p.DisplayName)
	}
	if p.Summary != "Dolor en epigastrio de 3 días." {
		t.Errorf("unexpected summary %q", p.Summary)
	}
	if p.Field(pkg.FieldLabs) != "Hb 12.1 g/dL\nLipasa normal" {
		t.Errorf("unexpected labs %q", p.Field(pkg.FieldLabs))
	}
	if len(p.Fields) != 12 {
		t.Errorf("expected every field key, got %d", len(p.Fields))
	}
	if p.NotesPath != "notes/sofia.txt" {
		t.Errorf("unexpected notes path %q", p.NotesPath)
	}
}

func TestBuildPersonaDefaults(t *testing.T) {
	p := BuildPersona("juan-perez", "x.txt", Sections("Refiere tos seca."))
	if p.DisplayName != "Juan Perez" {
		t.Errorf("expected title-cased slug, got %q", p.DisplayName)
	}
	if p.Summary != DefaultSummary {
		t.Errorf("expected default summary, got %q", p.Summary)
	}
	if p.Field(pkg.FieldDemographics) != DefaultDemographics {
		t.Errorf("expected default demographics, got %q", p.Field(pkg.FieldDemographics))
	}
	if p.Field(pkg.FieldNarrative) != "Refiere tos seca." {
		t.Errorf("unexpected narrative %q", p.Field(pkg.FieldNarrative))
	}

	empty := BuildPersona("x", "x.txt", Sections("Identificación:\nMotivo de consulta:\nFiebre"))
	if empty.DisplayName != DefaultDisplayName {
		t.Errorf("empty demographics heading should yield %q, got %q", DefaultDisplayName, empty.DisplayName)
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := map[string]string{
		"notes/Sofia Gastro.txt": "sofia-gastro",
		"caso.md":                "caso",
		"/tmp/Caso 2 Final.TXT":  "caso-2-final",
	}
	for in, want := range cases {
		if got := SlugFromPath(in); got != want {
			t.Errorf("SlugFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadAndExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Sofia Gastro.txt")
	if err := os.WriteFile(path, []byte(sampleNote), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Slug != "sofia-gastro" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}

	out, err := Export(filepath.Join(dir, "data"), p)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("exported file is not JSON: %v", err)
	}
	if fields[pkg.FieldChiefComplaint] != "Dolor en epigastrio de 3 días." {
		t.Fatalf("unexpected exported fields %+v", fields)
	}

	if _, err := Load(filepath.Join(dir, "missing.pdf"), ""); err == nil {
		t.Fatal("expected error for missing pdf")
	}
	blank := filepath.Join(dir, "blank.txt")
	os.WriteFile(blank, []byte("  \n"), 0o644)
	if _, err := Load(blank, ""); err == nil {
		t.Fatal("expected error for empty note")
	}
}

// writeNotePDF writes a single-page PDF with one text row per line.
func writeNotePDF(t *testing.T, path string, lines []string) {
	t.Helper()
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n")
	for i, l := range lines {
		fmt.Fprintf(&content, "1 0 0 1 72 %d Tm\n(%s) Tj\n", 720-16*i, l)
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ana Neuro.pdf")
	writeNotePDF(t, path, []string{
		"Datos generales:",
		"Ana Perez, 40 anos",
		"Motivo de consulta",
		"Cefalea de 2 dias.",
		"Laboratorio",
		"Hb 13 g/dL",
	})

	p, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Slug != "ana-neuro" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}
	if p.DisplayName != "Ana Perez, 40 anos" {
		t.Fatalf("unexpected display name %q", p.DisplayName)
	}
	if p.Summary != "Cefalea de 2 dias." {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
	if got := p.Field(pkg.FieldLabs); got != "Hb 13 g/dL" {
		t.Fatalf("unexpected labs %q", got)
	}
}

func TestLoadCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roto.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, ""); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}
