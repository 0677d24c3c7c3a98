package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactorRow_Probability(t *testing.T) {
	tests := []struct {
		name    string
		logOdds float64
		want    float64
	}{
		{"zero log odds is even", 0, 0.5},
		{"strong positive", 4, 0.982},
		{"strong negative", -4, 0.018},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := FactorRow{LogOdds: tt.logOdds}
			assert.InDelta(t, tt.want, row.Probability(), 0.001)
			assert.GreaterOrEqual(t, row.Probability(), 0.0)
			assert.LessOrEqual(t, row.Probability(), 1.0)
		})
	}
}

func TestFactorRow_RankedFactors(t *testing.T) {
	row := FactorRow{
		Contributions: map[string]float64{
			"deal_age_days":        -0.8,
			"revenue_tier_encoded": 1.2,
			"owning_region":        0.1,
			"discount_pct":         -1.5,
		},
	}

	ranked := row.RankedFactors()
	assert.Equal(t, []string{"discount_pct", "revenue_tier_encoded", "deal_age_days", "owning_region"},
		[]string{ranked[0].Name, ranked[1].Name, ranked[2].Name, ranked[3].Name})
}

func TestFactorRow_TopDrivers(t *testing.T) {
	row := FactorRow{
		Contributions: map[string]float64{
			"a": 0.9, "b": 0.5, "c": 0.1, "d": -0.7, "e": -0.2,
		},
	}

	pos, neg := row.TopDrivers(2)
	assert.Len(t, pos, 2)
	assert.Len(t, neg, 2)
	assert.Equal(t, "a", pos[0].Name)
	assert.Equal(t, "d", neg[0].Name)
}
