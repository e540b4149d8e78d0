package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/finlab/internal/diagnostic"
	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/statement"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// =============================================================================
// Types
// =============================================================================

// Scenario named sequence of shocks, applied in order
type Scenario struct {
	Name   string  `json:"name" yaml:"name"`
	Sector string  `json:"sector,omitempty" yaml:"sector,omitempty"`
	Shocks []Shock `json:"shocks" yaml:"shocks"`
}

// CovenantCheck one covenant evaluated on one record
type CovenantCheck struct {
	Indicator        string   `json:"indicator"`
	Value            *float64 `json:"value,omitempty"` // nil = undefined
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	Breached         bool     `json:"breached"`
	BaselineBreached bool     `json:"baseline_breached"`
	NewlyBreached    bool     `json:"newly_breached"` // breached now, not in the unshocked baseline
	Reason           string   `json:"reason,omitempty"`
}

// Step state after one shock
type Step struct {
	Shock         Shock            `json:"shock"`
	Record        statement.Record `json:"record"`
	Ratios        ratios.Set       `json:"ratios"`
	Covenants     []CovenantCheck  `json:"covenants"`
	NewlyBreached []string         `json:"newly_breached,omitempty"`
}

// Result full simulation. Baseline is the caller's record, untouched.
type Result struct {
	RunID             string             `json:"run_id"`
	Scenario          string             `json:"scenario"`
	Sector            string             `json:"sector,omitempty"`
	TableHash         string             `json:"table_hash"`
	Baseline          statement.Record   `json:"baseline"`
	BaselineCovenants []CovenantCheck    `json:"baseline_covenants"`
	BaselineReport    *diagnostic.Report `json:"baseline_report"`
	Steps             []Step             `json:"steps"`
	Final             statement.Record   `json:"final"`
	Report            *diagnostic.Report `json:"report"`
	Error             string             `json:"error,omitempty"` // batch runs only
}

// NewlyBreached every covenant breached at any step but not in the baseline
func (r *Result) NewlyBreached() []string {
	seen := map[string]bool{}
	var out []string
	for _, st := range r.Steps {
		for _, name := range st.NewlyBreached {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// =============================================================================
// Simulator
// =============================================================================

// Simulator applies shocks and re-runs ratios + classification.
// Holds no per-run state; the threshold table is read once per simulation.
type Simulator struct {
	store   *thresholds.Store
	log     *logger.Logger
	sector  string
	workers int
}

// NewSimulator workers bounds RunBatch parallelism (< 1 → 1)
func NewSimulator(store *thresholds.Store, log *logger.Logger, workers int) *Simulator {
	if workers < 1 {
		workers = 1
	}
	return &Simulator{
		store:   store,
		log:     log.Component("scenario.simulator"),
		workers: workers,
	}
}

// WithSector copy of the simulator that classifies against sector
func (s *Simulator) WithSector(sector string) *Simulator {
	cp := *s
	cp.sector = sector
	return &cp
}

// Simulate applies shocks in sequence to r
func (s *Simulator) Simulate(r statement.Record, shocks ...Shock) (*Result, error) {
	return s.SimulateScenario(r, Scenario{Name: "ad-hoc", Sector: s.sector, Shocks: shocks})
}

// SimulateScenario applies sc.Shocks in sequence and reports, per step, the
// covenants newly breached relative to the unshocked record.
func (s *Simulator) SimulateScenario(r statement.Record, sc Scenario) (*Result, error) {
	// one table snapshot per simulation
	table, hash := s.store.Current()

	sector := sc.Sector
	if sector == "" {
		sector = s.sector
	}
	res, err := table.Resolve(sector)
	if err != nil {
		return nil, err
	}

	prop, err := newPropagation(r, table.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("scenario %q baseline: %w", sc.Name, err)
	}

	result := &Result{
		RunID:     uuid.New().String(),
		Scenario:  sc.Name,
		Sector:    sector,
		TableHash: hash,
		Baseline:  r,
	}

	baseSet := ratios.ComputeAll(r, ratios.Options{TaxRate: table.TaxRate})
	result.BaselineCovenants = checkCovenants(res.Covenants(), baseSet, nil)
	result.BaselineReport = classify(res, table, hash, r, baseSet)

	current := r
	for i, shock := range sc.Shocks {
		next, err := apply(current, shock, prop)
		if err != nil {
			return nil, fmt.Errorf("scenario %q step %d (%s): %w", sc.Name, i+1, shock.Name(), err)
		}
		next = next.WithPeriod(fmt.Sprintf("%s+%d", r.Period(), i+1))

		set := ratios.ComputeAll(next, ratios.Options{TaxRate: table.TaxRate})
		checks := checkCovenants(res.Covenants(), set, result.BaselineCovenants)

		step := Step{Shock: shock, Record: next, Ratios: set, Covenants: checks}
		for _, c := range checks {
			if c.NewlyBreached {
				step.NewlyBreached = append(step.NewlyBreached, c.Indicator)
			}
		}
		result.Steps = append(result.Steps, step)
		current = next
	}

	result.Final = current
	result.Report = result.BaselineReport
	if len(result.Steps) > 0 {
		last := result.Steps[len(result.Steps)-1]
		result.Report = classify(res, table, hash, current, last.Ratios)
	}

	s.log.WithFields(map[string]interface{}{
		"run_id":         result.RunID,
		"scenario":       sc.Name,
		"steps":          len(result.Steps),
		"newly_breached": result.NewlyBreached(),
	}).Debug("scenario simulated")

	return result, nil
}

// RunBatch evaluates independent scenarios in parallel. A failing scenario
// is recorded in its Result.Error and does not stop the others; only ctx
// cancellation aborts the batch. Results keep the input order.
func (s *Simulator) RunBatch(ctx context.Context, r statement.Record, scenarios []Scenario) ([]*Result, error) {
	start := time.Now()
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.SimulateScenario(r, sc)
			if err != nil {
				s.log.WithError(err).WithField("scenario", sc.Name).Warn("scenario failed")
				res = &Result{RunID: uuid.New().String(), Scenario: sc.Name, Baseline: r, Error: err.Error()}
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	s.log.WithFields(map[string]interface{}{
		"scenarios": len(scenarios),
		"failed":    failed,
		"workers":   s.workers,
		"elapsed":   time.Since(start).String(),
	}).Info("scenario batch completed")

	return results, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// checkCovenants baseline == nil evaluates the baseline itself
func checkCovenants(covenants []thresholds.Covenant, set ratios.Set, baseline []CovenantCheck) []CovenantCheck {
	checks := make([]CovenantCheck, 0, len(covenants))
	for i, cov := range covenants {
		c := CovenantCheck{Indicator: cov.Indicator, Min: cov.Min, Max: cov.Max}

		if res, ok := set.Get(ratios.Name(cov.Indicator)); ok {
			v := res.Value
			c.Value = &v
			c.Breached = (cov.Min != nil && v < *cov.Min) || (cov.Max != nil && v > *cov.Max)
		} else {
			c.Breached = cov.OnUndefined == "breach"
			c.Reason = "undefined"
			if f, ok := set.Failed(ratios.Name(cov.Indicator)); ok {
				c.Reason = f.Reason
			}
		}

		if baseline != nil {
			c.BaselineBreached = baseline[i].Breached
			c.NewlyBreached = c.Breached && !c.BaselineBreached
		} else {
			c.BaselineBreached = c.Breached
		}
		checks = append(checks, c)
	}
	return checks
}

func classify(res *thresholds.Resolved, table *thresholds.Table, hash string, r statement.Record, set ratios.Set) *diagnostic.Report {
	in := diagnostic.Input{Period: r.Period(), Ratios: set}
	in.DuPont, in.DuPontErr = dupont.NewDecomposer(table.Tolerance.DupontRelative).Decompose(r, dupont.FiveFactor)

	report := diagnostic.Evaluate(res, in)
	report.TableHash = hash
	return report
}
