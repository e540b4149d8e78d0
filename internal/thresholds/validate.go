package thresholds

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
)

// ValidationError validation failure (table rejected)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning recommended constraint not met (table still usable)
type Warning struct {
	Code    string
	Message string
}

var structValidator = func() *validator.Validate {
	v := validator.New()
	// report yaml keys, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate checks struct tags first, then the cross-field rules.
func Validate(t *Table) error {
	if err := structValidator.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := "failed " + fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			return ValidationError{trimNamespace(fe.Namespace()), msg}
		}
		return err
	}

	// === Scoring ===
	if err := validateBands(t.Scoring.Bands); err != nil {
		return err
	}

	// === Covenants ===
	for i, c := range t.Covenants {
		if c.Min == nil && c.Max == nil {
			return ValidationError{fmt.Sprintf("covenants[%d]", i), "needs min or max"}
		}
		if c.Min != nil && c.Max != nil && *c.Min >= *c.Max {
			return ValidationError{fmt.Sprintf("covenants[%d]", i), "min must be < max"}
		}
	}

	// === Indicators ===
	if err := validateIndicators("indicators", t.Indicators); err != nil {
		return err
	}

	// === Sectors ===
	seen := map[string]bool{}
	for i, s := range t.Sectors {
		field := fmt.Sprintf("sectors[%d]", i)
		if seen[s.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate sector %q", s.Name)}
		}
		seen[s.Name] = true

		if err := validateIndicators(field+".indicators", s.Indicators); err != nil {
			return err
		}

		bench := map[string]bool{}
		for j, b := range s.Benchmarks {
			bf := fmt.Sprintf("%s.benchmarks[%d]", field, j)
			if bench[b.Indicator] {
				return ValidationError{bf, fmt.Sprintf("duplicate benchmark %q", b.Indicator)}
			}
			bench[b.Indicator] = true
			if b.Median == 0 {
				return ValidationError{bf + ".median", "must be non-zero"}
			}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(t *Table) []Warning {
	var warnings []Warning

	for _, ind := range t.Indicators {
		if !knownIndicator(ind.Name) {
			warnings = append(warnings, Warning{"UNKNOWN_INDICATOR", fmt.Sprintf("indicator %q is never computed", ind.Name)})
		}
	}
	for _, s := range t.Sectors {
		if len(s.Benchmarks) == 0 {
			warnings = append(warnings, Warning{"NO_BENCHMARKS", fmt.Sprintf("sector %q has no peer medians", s.Name)})
		}
		for _, b := range s.Benchmarks {
			if !knownIndicator(b.Indicator) {
				warnings = append(warnings, Warning{"UNKNOWN_BENCHMARK", fmt.Sprintf("sector %q benchmark %q is never computed", s.Name, b.Indicator)})
			}
		}
	}
	for _, c := range t.Covenants {
		if !knownIndicator(c.Indicator) {
			warnings = append(warnings, Warning{"UNKNOWN_COVENANT", fmt.Sprintf("covenant on %q is never computed", c.Indicator)})
		}
	}

	if t.Peer.Critical > 1.0 {
		warnings = append(warnings, Warning{"WIDE_PEER_BAND", "peer critical band > 100%: peer findings will be rare"})
	}
	if t.TaxRate == 0 {
		warnings = append(warnings, Warning{"ZERO_TAX_RATE", "tax_rate = 0: NOPAT equals EBIT"})
	}

	return warnings
}

// === Helper Functions ===

func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func knownIndicator(name string) bool {
	if _, ok := ratios.Lookup(ratios.Name(name)); ok {
		return true
	}
	switch dupont.FactorName(name) {
	case dupont.TaxBurden, dupont.InterestBurden, dupont.OperatingMargin:
		return true
	}
	return false
}

func validateBands(bands []Band) error {
	last := bands[len(bands)-1]
	if last.MaxScore != nil || last.MaxCritical != nil {
		return ValidationError{"scoring.bands", "last band must be unbounded"}
	}
	prev := -1
	for i, b := range bands[:len(bands)-1] {
		if b.MaxScore == nil {
			return ValidationError{fmt.Sprintf("scoring.bands[%d].max_score", i), "required except on the last band"}
		}
		if *b.MaxScore < prev {
			return ValidationError{fmt.Sprintf("scoring.bands[%d].max_score", i), "must not decrease"}
		}
		prev = *b.MaxScore
	}
	return nil
}

func validateIndicators(field string, inds []Indicator) error {
	seen := map[string]bool{}
	for i, ind := range inds {
		f := fmt.Sprintf("%s[%d]", field, i)
		if seen[ind.Name] {
			return ValidationError{f + ".name", fmt.Sprintf("duplicate indicator %q", ind.Name)}
		}
		seen[ind.Name] = true
		if err := validateRanges(f+".ranges", ind.Ranges); err != nil {
			return err
		}
	}
	return nil
}

// validateRanges ranges must tile (-inf, +inf) without gaps or overlaps
func validateRanges(field string, ranges []Range) error {
	sorted := append([]Range(nil), ranges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Min == nil {
			return sorted[j].Min != nil
		}
		if sorted[j].Min == nil {
			return false
		}
		return *sorted[i].Min < *sorted[j].Min
	})

	if sorted[0].Min != nil {
		return ValidationError{field, fmt.Sprintf("no range below %g", *sorted[0].Min)}
	}
	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.Max == nil || next.Min == nil {
			return ValidationError{field, "overlapping unbounded ranges"}
		}
		if *cur.Max != *next.Min {
			return ValidationError{field, fmt.Sprintf("gap or overlap between %g and %g", *cur.Max, *next.Min)}
		}
	}
	if sorted[len(sorted)-1].Max != nil {
		return ValidationError{field, fmt.Sprintf("no range above %g", *sorted[len(sorted)-1].Max)}
	}
	for _, r := range sorted {
		if r.Min != nil && r.Max != nil && *r.Min >= *r.Max {
			return ValidationError{field, fmt.Sprintf("empty range [%g, %g)", *r.Min, *r.Max)}
		}
	}
	return nil
}
