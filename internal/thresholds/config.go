package thresholds

import "time"

// Severity diagnostic severity of a range
type Severity string

const (
	SeverityOK        Severity = "ok"
	SeverityAttention Severity = "attention"
	SeverityCritical  Severity = "critical"
)

// Table threshold / benchmark configuration.
// ⭐ SSOT: every cutoff used by the classifier and the simulator comes from here
// Slices instead of maps keep Hash reproducible.
type Table struct {
	Meta       Meta        `yaml:"meta" json:"meta"`
	Tolerance  Tolerance   `yaml:"tolerance" json:"tolerance"`
	TaxRate    float64     `yaml:"tax_rate" json:"tax_rate" validate:"gte=0,lt=1"`
	Scoring    Scoring     `yaml:"scoring" json:"scoring"`
	Peer       PeerBands   `yaml:"peer" json:"peer"`
	RedFlags   RedFlags    `yaml:"red_flags" json:"red_flags"`
	Covenants  []Covenant  `yaml:"covenants" json:"covenants" validate:"dive"`
	Indicators []Indicator `yaml:"indicators" json:"indicators" validate:"required,min=1,dive"`
	Sectors    []Sector    `yaml:"sectors" json:"sectors" validate:"dive"`
}

// Meta table identity
type Meta struct {
	TableID     string `yaml:"table_id" json:"table_id" validate:"required"`
	Version     string `yaml:"version" json:"version" validate:"required"`
	Description string `yaml:"description" json:"description"`
}

// Tolerance numeric tolerances used by the verifications
type Tolerance struct {
	BalanceRelative float64 `yaml:"balance_relative" json:"balance_relative" validate:"gte=0,lt=1"`
	DupontRelative  float64 `yaml:"dupont_relative" json:"dupont_relative" validate:"gt=0,lt=1"`
	CashAbsolute    float64 `yaml:"cash_absolute" json:"cash_absolute" validate:"gte=0"` // currency units
}

// Scoring severity weights and score → label bands
type Scoring struct {
	Weights Weights `yaml:"weights" json:"weights"`
	Bands   []Band  `yaml:"bands" json:"bands" validate:"required,min=1,dive"`
}

type Weights struct {
	OK        int `yaml:"ok" json:"ok" validate:"gte=0"`
	Attention int `yaml:"attention" json:"attention" validate:"gte=0"`
	Critical  int `yaml:"critical" json:"critical" validate:"gte=0"`
}

// Band first band whose limits both hold wins; nil limit = unbounded
type Band struct {
	Label       string `yaml:"label" json:"label" validate:"required"`
	MaxScore    *int   `yaml:"max_score,omitempty" json:"max_score,omitempty"`
	MaxCritical *int   `yaml:"max_critical,omitempty" json:"max_critical,omitempty"`
}

// PeerBands relative deviation from the sector median that triggers a finding
type PeerBands struct {
	Attention float64 `yaml:"attention" json:"attention" validate:"gt=0"`
	Critical  float64 `yaml:"critical" json:"critical" validate:"gtfield=Attention"`
}

// RedFlags trend checklist cutoffs
type RedFlags struct {
	OCFToNetIncomeMin float64 `yaml:"ocf_to_net_income_min" json:"ocf_to_net_income_min" validate:"gt=0"`
}

// Covenant contractual limit checked by the scenario simulator
type Covenant struct {
	Indicator   string   `yaml:"indicator" json:"indicator" validate:"required"`
	Min         *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	OnUndefined string   `yaml:"on_undefined" json:"on_undefined" validate:"oneof=breach pass"`
}

// Indicator absolute ranges for one ratio or factor
type Indicator struct {
	Name   string  `yaml:"name" json:"name" validate:"required"`
	Label  string  `yaml:"label" json:"label"`
	Ranges []Range `yaml:"ranges" json:"ranges" validate:"required,min=1,dive"`
}

// Range half-open [Min, Max)
type Range struct {
	Severity Severity `yaml:"severity" json:"severity" validate:"oneof=ok attention critical"`
	Min      *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Message  string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// Sector peer medians and indicator overrides
type Sector struct {
	Name        string      `yaml:"name" json:"name" validate:"required"`
	Description string      `yaml:"description" json:"description"`
	Peer        *PeerBands  `yaml:"peer,omitempty" json:"peer,omitempty" validate:"omitempty"`
	Benchmarks  []Benchmark `yaml:"benchmarks" json:"benchmarks" validate:"dive"`
	Indicators  []Indicator `yaml:"indicators" json:"indicators" validate:"dive"`
}

// Benchmark sector median, in the indicator's own unit
type Benchmark struct {
	Indicator string  `yaml:"indicator" json:"indicator" validate:"required"`
	Median    float64 `yaml:"median" json:"median"`
}

// Snapshot audit record of the table a report was produced with
type Snapshot struct {
	TableHash string    `json:"table_hash"`
	TableYAML string    `json:"table_yaml,omitempty"`
	TableID   string    `json:"table_id"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains v ∈ [Min, Max)
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v >= *r.Max {
		return false
	}
	return true
}

// Classify returns the range holding v
func (i Indicator) Classify(v float64) (Range, bool) {
	for _, r := range i.Ranges {
		if r.Contains(v) {
			return r, true
		}
	}
	return Range{}, false
}

// Weight score weight of a severity
func (w Weights) Weight(s Severity) int {
	switch s {
	case SeverityCritical:
		return w.Critical
	case SeverityAttention:
		return w.Attention
	}
	return w.OK
}

// Label score band for a total score and critical count
func (s Scoring) Label(score, critical int) string {
	for _, b := range s.Bands {
		if b.MaxScore != nil && score > *b.MaxScore {
			continue
		}
		if b.MaxCritical != nil && critical > *b.MaxCritical {
			continue
		}
		return b.Label
	}
	return s.Bands[len(s.Bands)-1].Label
}
