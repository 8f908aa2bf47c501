package usecase

import (
	"encoding/json"
	"fmt"
	"strings"
)

// articleKeys is the exact external JSON shape downstream consumers expect.
var articleKeys = []string{"materia", "editoria", "subtitulo", "titulo", "keywords"}

// ValidateArticleJSON checks a persisted article file against the external
// contract: all five keys present, textual fields non-empty, keywords a
// non-empty list of strings, and the materia word count at or above minWords.
func ValidateArticleJSON(raw []byte, minWords int) error {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return fmt.Errorf("not a JSON object: %w", err)
	}

	for _, key := range articleKeys {
		if _, ok := shape[key]; !ok {
			return fmt.Errorf("missing required field %q", key)
		}
	}

	for _, key := range []string{"materia", "editoria", "subtitulo", "titulo"} {
		var value string
		if err := json.Unmarshal(shape[key], &value); err != nil {
			return fmt.Errorf("field %q is not a string: %w", key, err)
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("field %q is empty", key)
		}
	}

	var keywords []string
	if err := json.Unmarshal(shape["keywords"], &keywords); err != nil {
		return fmt.Errorf("field \"keywords\" is not a string list: %w", err)
	}
	if len(keywords) == 0 {
		return fmt.Errorf("field \"keywords\" is empty")
	}
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("field \"keywords\" contains an empty entry")
		}
	}

	var materia string
	_ = json.Unmarshal(shape["materia"], &materia)
	if words := wordCount(materia); words < minWords {
		return fmt.Errorf("materia has %d words, minimum is %d", words, minWords)
	}

	return nil
}

// ValidateInsightsJSON checks a persisted insight bundle for its required
// fields.
func ValidateInsightsJSON(raw []byte) error {
	var shape struct {
		GeneratedAt string             `json:"generated_at"`
		Metrics     map[string]float64 `json:"metrics"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return fmt.Errorf("not a JSON object: %w", err)
	}
	if shape.GeneratedAt == "" {
		return fmt.Errorf("missing generated_at stamp")
	}
	if len(shape.Metrics) == 0 {
		return fmt.Errorf("metrics mapping is empty")
	}
	if _, ok := shape.Metrics["records_total"]; !ok {
		return fmt.Errorf("metrics missing records_total")
	}
	return nil
}
