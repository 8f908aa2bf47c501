package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"

	"NewsForge/internal/ports"
)

// Renderer draws insight bar charts as PNG artifacts under dir.
type Renderer struct {
	dir string
}

var _ ports.ChartRenderer = (*Renderer)(nil)

// NewRenderer roots chart output at dir.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// RenderBars writes <dir>/<name>.png with one bar per value, keys sorted for
// a stable layout.
func (r *Renderer) RenderBars(name, title string, values map[string]float64) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("chart %s: no values", name)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bars := make([]gochart.Value, 0, len(keys))
	for _, k := range keys {
		bars = append(bars, gochart.Value{Label: k, Value: values[k]})
	}

	graph := gochart.BarChart{
		Title:    title,
		Width:    900,
		Height:   450,
		BarWidth: 48,
		Bars:     bars,
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("chart %s: %w", name, err)
	}

	path := filepath.Join(r.dir, name+".png")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", name, err)
	}
	defer file.Close()

	if err := graph.Render(gochart.PNG, file); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("render chart %s: %w", name, err)
	}
	return path, nil
}
