package diagnostic

import (
	"fmt"
	"math"

	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// Input everything one classification looks at. Nothing here is modified.
type Input struct {
	Subject string
	Period  string
	Sector  string // "" = absolute thresholds only
	Ratios  ratios.Set

	// DuPont five-factor decomposition; nil with DuPontErr explaining why
	DuPont    *dupont.Result
	DuPontErr error

	// Extra findings (trend red flags) scored together with the rest
	Extra []Finding
}

// =============================================================================
// Evaluate (Pure)
// =============================================================================

// Evaluate classifies in against the resolved table view.
// ⭐ SSOT: pure function of (ratios, thresholds); every indicator produces a finding.
//
// Order: table indicators (absolute, then peer when a median exists), then
// peer-only benchmarks, then Extra.
func Evaluate(res *thresholds.Resolved, in Input) *Report {
	report := &Report{
		Subject: in.Subject,
		Period:  in.Period,
		Sector:  res.Sector(),
	}
	if report.Period == "" {
		report.Period = in.Ratios.Period
	}

	values := collectValues(in)
	evaluated := map[string]bool{}

	for _, ind := range res.Indicators() {
		evaluated[ind.Name] = true
		v, ok := values[ind.Name]
		if !ok {
			report.Unavailable = append(report.Unavailable, Unavailable{ind.Name, unavailableReason(in, ind.Name)})
			continue
		}

		if r, found := ind.Classify(v); found {
			report.Findings = append(report.Findings, Finding{
				Indicator: ind.Name,
				Label:     ind.Label,
				Mode:      ModeAbsolute,
				Value:     v,
				Threshold: &r,
				Severity:  r.Severity,
				Message:   r.Message,
			})
		}

		if median, ok := res.Benchmark(ind.Name); ok {
			report.Findings = append(report.Findings, peerFinding(ind.Name, ind.Label, v, median, res.Peer(), higherIsBetter(ind)))
		}
	}

	// benchmarks without absolute ranges (gross_margin, roa, ...)
	for _, b := range benchmarkNames(res, in) {
		if evaluated[b] {
			continue
		}
		median, _ := res.Benchmark(b)
		v, ok := values[b]
		if !ok {
			report.Unavailable = append(report.Unavailable, Unavailable{b, unavailableReason(in, b)})
			continue
		}
		report.Findings = append(report.Findings, peerFinding(b, "", v, median, res.Peer(), true))
	}

	report.Findings = append(report.Findings, in.Extra...)

	// === Score ===
	scoring := res.Scoring()
	for _, f := range report.Findings {
		report.Score += scoring.Weights.Weight(f.Severity)
		report.Counts.add(f.Severity)
	}
	report.Label = scoring.Label(report.Score, report.Counts.Critical)

	return report
}

// =============================================================================
// Classifier (holds the table store)
// =============================================================================

// Classifier resolves the current table snapshot per report and evaluates
type Classifier struct {
	store *thresholds.Store
	log   *logger.Logger
}

// NewClassifier classifier reading tables from store
func NewClassifier(store *thresholds.Store, log *logger.Logger) *Classifier {
	return &Classifier{
		store: store,
		log:   log.Component("diagnostic.classifier"),
	}
}

// Classify takes one table snapshot, so a concurrent Replace is never seen mid-report
func (c *Classifier) Classify(in Input) (*Report, error) {
	table, hash := c.store.Current()

	res, err := table.Resolve(in.Sector)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", in.Subject, err)
	}

	report := Evaluate(res, in)
	report.TableHash = hash

	c.log.WithFields(map[string]interface{}{
		"subject":     report.Subject,
		"period":      report.Period,
		"sector":      report.Sector,
		"score":       report.Score,
		"label":       report.Label,
		"unavailable": len(report.Unavailable),
	}).Debug("diagnostic report produced")

	return report, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// collectValues ratio results first; DuPont factors only fill names the
// ratio set does not carry (net_margin stays in percent).
func collectValues(in Input) map[string]float64 {
	values := make(map[string]float64, len(in.Ratios.Results)+5)
	for _, r := range in.Ratios.Results {
		values[string(r.Name)] = r.Value
	}
	if in.DuPont != nil {
		for _, f := range in.DuPont.Factors {
			if _, exists := values[string(f.Name)]; !exists {
				values[string(f.Name)] = f.Value
			}
		}
	}
	return values
}

func unavailableReason(in Input, name string) string {
	if f, ok := in.Ratios.Failed(ratios.Name(name)); ok {
		return f.Reason
	}
	if in.DuPontErr != nil && isFactor(name) {
		return in.DuPontErr.Error()
	}
	return "not computed"
}

func isFactor(name string) bool {
	switch dupont.FactorName(name) {
	case dupont.TaxBurden, dupont.InterestBurden, dupont.OperatingMargin:
		return true
	}
	return false
}

// benchmarkNames sector medians in ratio catalog order, factors last
func benchmarkNames(res *thresholds.Resolved, in Input) []string {
	var names []string
	for _, def := range ratios.Catalog() {
		if _, ok := res.Benchmark(string(def.Name)); ok {
			names = append(names, string(def.Name))
		}
	}
	for _, f := range []dupont.FactorName{dupont.TaxBurden, dupont.InterestBurden, dupont.OperatingMargin} {
		if _, ok := res.Benchmark(string(f)); ok {
			names = append(names, string(f))
		}
	}
	return names
}

// higherIsBetter reads the direction off the absolute ranges: when the
// lowest range is the healthy one, lower values are better.
func higherIsBetter(ind thresholds.Indicator) bool {
	for _, r := range ind.Ranges {
		if r.Min == nil {
			return r.Severity != thresholds.SeverityOK
		}
	}
	return true
}

// peerFinding only adverse deviations count; beating the median is ok
func peerFinding(name, label string, value, median float64, bands thresholds.PeerBands, higherBetter bool) Finding {
	dev := (value - median) / math.Abs(median)
	adverse := dev
	if higherBetter {
		adverse = -dev
	}

	sev := thresholds.SeverityOK
	msg := "in line with sector median"
	switch {
	case adverse >= bands.Critical:
		sev = thresholds.SeverityCritical
		msg = fmt.Sprintf("%.0f%% worse than sector median", adverse*100)
	case adverse >= bands.Attention:
		sev = thresholds.SeverityAttention
		msg = fmt.Sprintf("%.0f%% worse than sector median", adverse*100)
	case adverse < 0:
		msg = "better than sector median"
	}

	m, d := median, dev
	return Finding{
		Indicator: name,
		Label:     label,
		Mode:      ModePeer,
		Value:     value,
		Benchmark: &m,
		Deviation: &d,
		Severity:  sev,
		Message:   msg,
	}
}
