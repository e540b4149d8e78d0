package statement

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance relative tolerance for the balance-sheet identities
const DefaultTolerance = 1e-6

// Invariant rule names carried by InvariantViolationError.Rule
const (
	RuleNonNegative     = "non_negative"
	RuleBalanceAssets   = "balance_assets"    // total = current + non-current
	RuleBalanceFunding  = "balance_funding"   // total = liabilities + equity
	RuleRetainedEarning = "retained_earnings" // ΔRE = net income - dividends
)

// Record is one fiscal period's statement figures.
// ⭐ SSOT: every engine reads line items through a Record; it is never mutated after New
type Record struct {
	period string
	values map[Field]decimal.Decimal
}

// New builds a Record from a field → value mapping.
// Only supplied fields are present; non-signed fields must be >= 0.
func New(period string, values map[Field]decimal.Decimal) (Record, error) {
	copied := make(map[Field]decimal.Decimal, len(values))
	for f, v := range values {
		if !known[f] {
			return Record{}, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
		}
		if v.IsNegative() && !f.IsSigned() {
			return Record{}, &InvariantViolationError{
				Rule:   RuleNonNegative,
				Period: period,
				Left:   v,
				Right:  decimal.Zero,
				Detail: fmt.Sprintf("%s must be >= 0, got %s", f, v),
			}
		}
		copied[f] = v
	}
	return Record{period: period, values: copied}, nil
}

// FromFloats builds a Record from wire keys (YAML case files, HTTP payloads).
func FromFloats(period string, values map[string]float64) (Record, error) {
	parsed := make(map[Field]decimal.Decimal, len(values))
	for key, v := range values {
		f, err := ParseField(key)
		if err != nil {
			return Record{}, err
		}
		parsed[f] = decimal.NewFromFloat(v)
	}
	return New(period, parsed)
}

// Period label of the fiscal period (e.g. "2023")
func (r Record) Period() string {
	return r.period
}

// Has reports whether the field was supplied
func (r Record) Has(f Field) bool {
	_, ok := r.values[f]
	return ok
}

// Get returns the field or MissingFieldError
func (r Record) Get(f Field) (decimal.Decimal, error) {
	v, ok := r.values[f]
	if !ok {
		return decimal.Zero, &MissingFieldError{Field: f, Period: r.period}
	}
	return v, nil
}

// Float returns the field as float64
func (r Record) Float(f Field) (float64, error) {
	v, err := r.Get(f)
	if err != nil {
		return 0, err
	}
	return v.InexactFloat64(), nil
}

// Lookup fetches several fields at once, failing on the first absent one.
func (r Record) Lookup(fields ...Field) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		v, err := r.Get(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Fields lists the present fields in canonical order
func (r Record) Fields() []Field {
	var out []Field
	for _, f := range AllFields() {
		if r.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Values returns a copy of the underlying mapping
func (r Record) Values() map[Field]decimal.Decimal {
	out := make(map[Field]decimal.Decimal, len(r.values))
	for f, v := range r.values {
		out[f] = v
	}
	return out
}

// Floats returns the figures keyed by wire key
func (r Record) Floats() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for f, v := range r.values {
		out[string(f)] = v.InexactFloat64()
	}
	return out
}

// With returns a new Record with the given fields replaced or added.
// The receiver is left untouched.
func (r Record) With(updates map[Field]decimal.Decimal) (Record, error) {
	merged := r.Values()
	for f, v := range updates {
		merged[f] = v
	}
	return New(r.period, merged)
}

// WithPeriod relabels the record
func (r Record) WithPeriod(period string) Record {
	return Record{period: period, values: r.values}
}

// TotalDebt short + long term financial debt
func (r Record) TotalDebt() (decimal.Decimal, error) {
	v, err := r.Lookup(ShortTermDebt, LongTermDebt)
	if err != nil {
		return decimal.Zero, err
	}
	return v[0].Add(v[1]), nil
}

// TotalLiabilities current + non-current liabilities
func (r Record) TotalLiabilities() (decimal.Decimal, error) {
	v, err := r.Lookup(CurrentLiabilities, NonCurrentLiabilities)
	if err != nil {
		return decimal.Zero, err
	}
	return v[0].Add(v[1]), nil
}

// CheckBalance verifies both balance-sheet identities within a relative tolerance.
func (r Record) CheckBalance(tol float64) error {
	v, err := r.Lookup(TotalAssets, CurrentAssets, NonCurrentAssets, CurrentLiabilities, NonCurrentLiabilities, Equity)
	if err != nil {
		return err
	}
	total := v[0]

	assets := v[1].Add(v[2])
	if !WithinTolerance(total, assets, tol) {
		return &InvariantViolationError{Rule: RuleBalanceAssets, Period: r.period, Left: total, Right: assets}
	}

	funding := v[3].Add(v[4]).Add(v[5])
	if !WithinTolerance(total, funding, tol) {
		return &InvariantViolationError{Rule: RuleBalanceFunding, Period: r.period, Left: total, Right: funding}
	}
	return nil
}

// MarshalJSON renders figures as plain numbers
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period string             `json:"period"`
		Values map[string]float64 `json:"values"`
	}{r.period, r.Floats()})
}

// WithinTolerance |a-b| <= rel * max(|a|, |b|, 1); rel = 0 means exact equality.
func WithinTolerance(a, b decimal.Decimal, rel float64) bool {
	diff := a.Sub(b).Abs()
	scale := decimal.Max(a.Abs(), b.Abs(), decimal.NewFromInt(1))
	return diff.LessThanOrEqual(scale.Mul(decimal.NewFromFloat(rel)))
}

// =============================================================================
// Period helpers
// =============================================================================

// Delta current - prior for one field
func Delta(prior, current Record, f Field) (decimal.Decimal, error) {
	p, err := prior.Get(f)
	if err != nil {
		return decimal.Zero, err
	}
	c, err := current.Get(f)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Sub(p), nil
}

// AverageBalances returns a record whose balance-sheet lines are the average of the
// two periods and whose income lines come from current. A balance line present in
// only one period is left absent.
func AverageBalances(prior, current Record) Record {
	avg := make(map[Field]decimal.Decimal, len(current.values))
	two := decimal.NewFromInt(2)
	for f, c := range current.values {
		if !f.IsBalance() {
			avg[f] = c
			continue
		}
		if p, ok := prior.values[f]; ok {
			avg[f] = p.Add(c).Div(two)
		}
	}
	return Record{period: current.period, values: avg}
}
