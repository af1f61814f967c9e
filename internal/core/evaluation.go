package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"patientsim/pkg"
)

// Dimension is one rubric axis: the key expected in the evaluator's JSON and
// the label shown to the student.
type Dimension struct {
	Key   string
	Label string
}

// RubricDimensions lists the evaluated dimensions in display order.
var RubricDimensions = []Dimension{
	{Key: "anamnesis", Label: "Anamnesis"},
	{Key: "hipotesis", Label: "Hipótesis"},
	{Key: "examen_fisico", Label: "Examen físico"},
	{Key: "uso_pruebas", Label: "Uso de pruebas"},
	{Key: "proximos_pasos", Label: "Próximos pasos"},
}

// summaryKeys are accepted aliases for the closing summary, in priority order.
var summaryKeys = []string{"resumen", "summary"}

// UnparsedTag marks a rubric built from output that could not be read.
const UnparsedTag = "unparsed"

// EvaluationStatus tags how an evaluation was produced.
type EvaluationStatus string

const (
	EvaluationParsed   EvaluationStatus = "parsed"
	EvaluationDegraded EvaluationStatus = "degraded"
)

// Evaluation is the result of reading the evaluator output.  A degraded
// evaluation carries the raw text as feedback and a rubric whose Error is
// UnparsedTag, so it is never confused with a rubric scored zero.
type Evaluation struct {
	Status EvaluationStatus
	Text   string
	Rubric pkg.Rubric
}

// Degraded reports whether the model output could not be parsed.
func (e Evaluation) Degraded() bool {
	return e.Status == EvaluationDegraded
}

// ParseEvaluation turns raw evaluator output into a formatted rubric.  It is
// total: any input produces an Evaluation.
func ParseEvaluation(raw string) Evaluation {
	payload := decodeObject(extractJSONPayload(raw))
	if len(payload) == 0 {
		fallback := strings.TrimSpace(raw)
		if fallback == "" {
			fallback = EvalFallback
		}
		return Evaluation{
			Status: EvaluationDegraded,
			Text:   EvalHeader + "\n\n" + fallback + "\n\n" + EvalReminder,
			Rubric: pkg.Rubric{Error: UnparsedTag},
		}
	}

	lines := []string{EvalHeader}
	dims := make(map[string]pkg.DimensionScore, len(RubricDimensions))
	for _, d := range RubricDimensions {
		entry, _ := payload[d.Key].(map[string]any)
		score := clampScore(entry["score"])
		feedback := EvalEmptyFeedback
		if s, ok := entry["feedback"].(string); ok && strings.TrimSpace(s) != "" {
			feedback = strings.TrimSpace(s)
		}
		dims[d.Key] = pkg.DimensionScore{Score: score, Feedback: feedback}
		lines = append(lines, fmt.Sprintf("• %s: %d/2 — %s", d.Label, score, feedback))
	}

	// The first non-empty alias wins even when it is not a string, in which
	// case there is no summary.
	var summary string
	for _, key := range summaryKeys {
		v := payload[key]
		if isEmptyValue(v) {
			continue
		}
		if s, ok := v.(string); ok {
			summary = strings.TrimSpace(s)
		}
		break
	}
	if summary != "" {
		lines = append(lines, "", EvalSummaryPrefix+" "+summary)
	}
	lines = append(lines, "", EvalReminder)

	return Evaluation{
		Status: EvaluationParsed,
		Text:   strings.Join(lines, "\n"),
		Rubric: pkg.Rubric{Dimensions: dims, Summary: summary},
	}
}

// extractJSONPayload strips one enclosing code fence and its language tag.
func extractJSONPayload(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	for _, segment := range strings.Split(text, "```") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		return stripLanguageTag(segment)
	}
	return ""
}

// stripLanguageTag drops a leading token such as "json" or "JSON5".  A
// payload starting with '{' or '[' has no tag.
func stripLanguageTag(segment string) string {
	i := 0
	for i < len(segment) && isTagByte(segment[i]) {
		i++
	}
	return strings.TrimSpace(segment[i:])
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '-' || b == '+'
}

// decodeObject parses a JSON object; anything else yields nil.
func decodeObject(text string) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil
	}
	return payload
}

// clampScore coerces a JSON number into [0, 2].  Booleans count as 1 and 0;
// anything else scores 0.
func clampScore(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	}
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Max(0, math.Min(2, f)))
}

// isEmptyValue reports whether a decoded JSON value is missing, null, false,
// zero or an empty string, array or object.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
