package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleJSON(overrides map[string]string) string {
	materia := strings.TrimSpace(strings.Repeat("palavra ", 30))
	fields := map[string]string{
		"materia":   `"` + materia + `"`,
		"editoria":  `"Política"`,
		"subtitulo": `"Texto segue para sanção"`,
		"titulo":    `"Reforma aprovada"`,
		"keywords":  `["reforma", "congresso"]`,
	}
	for key, value := range overrides {
		fields[key] = value
	}

	var parts []string
	for _, key := range []string{"materia", "editoria", "subtitulo", "titulo", "keywords"} {
		if fields[key] != "" {
			parts = append(parts, `"`+key+`": `+fields[key])
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func TestValidateArticleJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid article", raw: articleJSON(nil)},
		{name: "not json", raw: "matéria em texto puro", wantErr: "not a JSON object"},
		{name: "missing titulo", raw: articleJSON(map[string]string{"titulo": ""}), wantErr: `missing required field "titulo"`},
		{name: "blank editoria", raw: articleJSON(map[string]string{"editoria": `"  "`}), wantErr: `field "editoria" is empty`},
		{name: "keywords not a list", raw: articleJSON(map[string]string{"keywords": `"reforma"`}), wantErr: "not a string list"},
		{name: "empty keywords", raw: articleJSON(map[string]string{"keywords": `[]`}), wantErr: `"keywords" is empty`},
		{name: "blank keyword entry", raw: articleJSON(map[string]string{"keywords": `["reforma", " "]`}), wantErr: "empty entry"},
		{name: "materia too short", raw: articleJSON(map[string]string{"materia": `"texto curto demais"`}), wantErr: "minimum is 20"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateArticleJSON([]byte(tc.raw), 20)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateInsightsJSON(t *testing.T) {
	t.Parallel()

	valid := `{"generated_at": "2026-05-20T12:00:00Z", "metrics": {"records_total": 3}}`
	assert.NoError(t, ValidateInsightsJSON([]byte(valid)))

	noStamp := `{"metrics": {"records_total": 3}}`
	assert.ErrorContains(t, ValidateInsightsJSON([]byte(noStamp)), "generated_at")

	noMetrics := `{"generated_at": "2026-05-20T12:00:00Z", "metrics": {}}`
	assert.ErrorContains(t, ValidateInsightsJSON([]byte(noMetrics)), "metrics mapping is empty")

	noTotal := `{"generated_at": "2026-05-20T12:00:00Z", "metrics": {"category.politica": 2}}`
	assert.ErrorContains(t, ValidateInsightsJSON([]byte(noTotal)), "records_total")
}
