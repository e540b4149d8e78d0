package analysis

import "github.com/wonny/finlab/internal/casestudy"

// CaseInput analysis input for a case: latest period, the one before it
// (with its supplementary items, if any) and the case's scenarios.
func CaseInput(c *casestudy.Case) (Input, error) {
	current, err := c.Latest()
	if err != nil {
		return Input{}, err
	}
	in := Input{
		Subject:   c.Title,
		Sector:    c.Sector,
		Current:   current,
		Scenarios: c.Scenarios,
	}
	if in.OperatingCashFlow, err = c.OperatingCashFlow(current.Period()); err != nil {
		return Input{}, err
	}

	if n := len(c.Periods); n > 1 {
		prior, err := c.Record(c.Periods[n-2].Period)
		if err != nil {
			return Input{}, err
		}
		in.Prior = &prior
		if in.PriorOperatingCashFlow, err = c.OperatingCashFlow(prior.Period()); err != nil {
			return Input{}, err
		}
		for _, s := range c.Supplementary {
			if s.From == prior.Period() && s.To == current.Period() {
				supp := c.SupplementaryFor(s.From, s.To)
				in.Supplementary = &supp
			}
		}
	}
	return in, nil
}
