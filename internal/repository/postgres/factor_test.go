package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorRowFromMap(t *testing.T) {
	raw := map[string]interface{}{
		"opportunity_number":   "  OP00138096 ",
		"prediction":           1.5,
		"deal_age_days":        -0.42,
		"revenue_tier_encoded": float32(0.8),
		"loaded_at":            "2025-08-01T00:00:00Z", // ignored: non-numeric
	}

	row, err := factorRowFromMap(raw)
	require.NoError(t, err)

	assert.Equal(t, "OP00138096", row.OpportunityNumber)
	assert.Equal(t, 1.5, row.LogOdds)
	assert.Len(t, row.Contributions, 2)
	assert.InDelta(t, -0.42, row.Contributions["deal_age_days"], 1e-9)
	assert.InDelta(t, 0.8, row.Contributions["revenue_tier_encoded"], 1e-6)
	assert.NotContains(t, row.Contributions, "prediction")
	assert.NotContains(t, row.Contributions, "opportunity_number")
}

func TestFactorRowFromMap_MissingKey(t *testing.T) {
	_, err := factorRowFromMap(map[string]interface{}{"prediction": 0.1})
	require.Error(t, err)
}

func TestFactorRowFromMap_ByteValues(t *testing.T) {
	// lib/pq returns numerics as []byte for wide scans
	raw := map[string]interface{}{
		"opportunity_number": []byte("OP001"),
		"prediction":         []byte("0.75"),
		"deal_age_days":      []byte("-1.25"),
	}

	row, err := factorRowFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "OP001", row.OpportunityNumber)
	assert.InDelta(t, 0.75, row.LogOdds, 1e-9)
	assert.InDelta(t, -1.25, row.Contributions["deal_age_days"], 1e-9)
}
