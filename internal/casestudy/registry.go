package casestudy

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed data/*.yaml
var embedded embed.FS

// Summary list entry
type Summary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Module  int      `json:"module"`
	Sector  string   `json:"sector,omitempty"`
	Periods []string `json:"periods"`
}

// Registry cases by ID.
// Resolution order: files in the override directory, then the embedded set.
type Registry struct {
	cases map[string]*Case
}

// NewRegistry embedded cases, overridden or extended by *.yaml files in dir ("" = embedded only)
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{cases: make(map[string]*Case)}

	entries, err := fs.Glob(embedded, "data/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, name := range entries {
		data, err := embedded.ReadFile(name)
		if err != nil {
			return nil, err
		}
		c, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("embedded %s: %w", name, err)
		}
		r.cases[c.ID] = c
	}

	if dir == "" {
		return r, nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("case directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}
		c, err := LoadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, err
		}
		r.cases[c.ID] = c
	}
	return r, nil
}

// Default embedded cases only
func Default() *Registry {
	r, err := NewRegistry("")
	if err != nil {
		panic(fmt.Sprintf("embedded cases are invalid: %v", err))
	}
	return r
}

// Get case by ID
func (r *Registry) Get(id string) (*Case, error) {
	c, ok := r.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCase, id)
	}
	return c, nil
}

// List summaries ordered by module, then ID
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.cases))
	for _, c := range r.cases {
		periods := make([]string, len(c.Periods))
		for i, p := range c.Periods {
			periods[i] = p.Period
		}
		out = append(out, Summary{
			ID:      c.ID,
			Title:   c.Title,
			Module:  c.Module,
			Sector:  c.Sector,
			Periods: periods,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].ID < out[j].ID
	})
	return out
}
