package diagnostic

import (
	"github.com/wonny/finlab/internal/thresholds"
)

// =============================================================================
// Finding / Report Types
// =============================================================================

// Mode how a finding was evaluated
type Mode string

const (
	ModeAbsolute Mode = "absolute" // fixed ranges from the threshold table
	ModePeer     Mode = "peer"     // deviation from the sector median
	ModeTrend    Mode = "trend"    // two-period red-flag checklist
)

// Finding one evaluated indicator. Produced for every indicator, ok included.
type Finding struct {
	Indicator string              `json:"indicator"`
	Label     string              `json:"label,omitempty"`
	Mode      Mode                `json:"mode"`
	Value     float64             `json:"value"`
	Threshold *thresholds.Range   `json:"threshold,omitempty"` // absolute
	Benchmark *float64            `json:"benchmark,omitempty"` // peer median
	Deviation *float64            `json:"deviation,omitempty"` // peer: (value - median) / |median|
	Severity  thresholds.Severity `json:"severity"`
	Message   string              `json:"message,omitempty"`
}

// Unavailable an indicator the table asks for that could not be computed
type Unavailable struct {
	Indicator string `json:"indicator"`
	Reason    string `json:"reason"`
}

// Counts findings per severity
type Counts struct {
	OK        int `json:"ok"`
	Attention int `json:"attention"`
	Critical  int `json:"critical"`
}

func (c *Counts) add(s thresholds.Severity) {
	switch s {
	case thresholds.SeverityCritical:
		c.Critical++
	case thresholds.SeverityAttention:
		c.Attention++
	default:
		c.OK++
	}
}

// Report complete classification of one subject/period
type Report struct {
	Subject     string        `json:"subject,omitempty"`
	Period      string        `json:"period"`
	Sector      string        `json:"sector,omitempty"`
	TableHash   string        `json:"table_hash,omitempty"`
	Findings    []Finding     `json:"findings"`
	Unavailable []Unavailable `json:"unavailable,omitempty"`
	Score       int           `json:"score"`
	Label       string        `json:"label"`
	Counts      Counts        `json:"counts"`
}

// Finding first finding for indicator in the given mode
func (r *Report) Finding(indicator string, mode Mode) (Finding, bool) {
	for _, f := range r.Findings {
		if f.Indicator == indicator && f.Mode == mode {
			return f, true
		}
	}
	return Finding{}, false
}

// Flagged findings with severity above ok
func (r *Report) Flagged() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity != thresholds.SeverityOK {
			out = append(out, f)
		}
	}
	return out
}
