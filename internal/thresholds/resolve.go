package thresholds

import (
	"errors"
	"fmt"
)

// ErrUnknownSector sector name not present in the table
var ErrUnknownSector = errors.New("unknown sector")

// Resolved indicator ranges, peer medians and bands in effect for one sector.
// Sector overrides replace the base entry with the same name.
type Resolved struct {
	sector     string
	indicators map[string]Indicator
	order      []string
	benchmarks map[string]float64
	peer       PeerBands
	covenants  []Covenant
	scoring    Scoring
	redFlags   RedFlags
}

// Resolve builds the view for sector ("" = base table, no peer medians)
func (t *Table) Resolve(sector string) (*Resolved, error) {
	r := &Resolved{
		sector:     sector,
		indicators: make(map[string]Indicator, len(t.Indicators)),
		benchmarks: map[string]float64{},
		peer:       t.Peer,
		covenants:  t.Covenants,
		scoring:    t.Scoring,
		redFlags:   t.RedFlags,
	}
	for _, ind := range t.Indicators {
		r.indicators[ind.Name] = ind
		r.order = append(r.order, ind.Name)
	}

	if sector == "" {
		return r, nil
	}

	s, ok := t.Sector(sector)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSector, sector)
	}
	if s.Peer != nil {
		r.peer = *s.Peer
	}
	for _, b := range s.Benchmarks {
		r.benchmarks[b.Indicator] = b.Median
	}
	for _, ind := range s.Indicators {
		if _, exists := r.indicators[ind.Name]; !exists {
			r.order = append(r.order, ind.Name)
		}
		r.indicators[ind.Name] = ind
	}
	return r, nil
}

// Sector looks a sector up by name
func (t *Table) Sector(name string) (Sector, bool) {
	for _, s := range t.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return Sector{}, false
}

// SectorNames in table order
func (t *Table) SectorNames() []string {
	names := make([]string, 0, len(t.Sectors))
	for _, s := range t.Sectors {
		names = append(names, s.Name)
	}
	return names
}

func (r *Resolved) Sector() string { return r.sector }

// Indicator ranges in effect for name
func (r *Resolved) Indicator(name string) (Indicator, bool) {
	ind, ok := r.indicators[name]
	return ind, ok
}

// Indicators in table order, base first then sector additions
func (r *Resolved) Indicators() []Indicator {
	out := make([]Indicator, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.indicators[name])
	}
	return out
}

// Benchmark sector median for name
func (r *Resolved) Benchmark(name string) (float64, bool) {
	m, ok := r.benchmarks[name]
	return m, ok
}

func (r *Resolved) Peer() PeerBands { return r.peer }
func (r *Resolved) Covenants() []Covenant { return r.covenants }
func (r *Resolved) Scoring() Scoring { return r.scoring }
func (r *Resolved) RedFlags() RedFlags { return r.redFlags }
