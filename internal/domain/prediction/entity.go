package prediction

import (
	"math"
	"sort"
)

// FactorRow is one precomputed model-explanation row: the model's log-odds
// prediction for a deal plus per-feature signed contributions.
type FactorRow struct {
	OpportunityNumber string
	LogOdds           float64
	Contributions     map[string]float64
}

// Probability converts the row's log-odds into a win probability in [0,1].
func (r FactorRow) Probability() float64 {
	return 1.0 / (1.0 + math.Exp(-r.LogOdds))
}

// Factor is one named, signed contribution to a prediction.
type Factor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

// Prediction is the explanation produced for one deal: probability, ranked
// drivers and a short natural-language summary with one actionable
// suggestion. A deal with no factor row gets no Prediction at all.
type Prediction struct {
	OpportunityNumber string   `json:"opportunity_number"`
	Probability       float64  `json:"probability"`
	Factors           []Factor `json:"factors"`
	Summary           string   `json:"summary"`
}

// RankedFactors returns the row's contributions ordered by absolute
// magnitude, largest first. Ties break by name for determinism.
func (r FactorRow) RankedFactors() []Factor {
	factors := make([]Factor, 0, len(r.Contributions))
	for name, c := range r.Contributions {
		factors = append(factors, Factor{Name: name, Contribution: c})
	}
	sort.Slice(factors, func(i, j int) bool {
		ai, aj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})
	return factors
}

// TopDrivers splits the ranked factors into the strongest positive and
// negative drivers, up to n each.
func (r FactorRow) TopDrivers(n int) (positive, negative []Factor) {
	for _, f := range r.RankedFactors() {
		switch {
		case f.Contribution > 0 && len(positive) < n:
			positive = append(positive, f)
		case f.Contribution < 0 && len(negative) < n:
			negative = append(negative, f)
		}
	}
	return positive, negative
}
