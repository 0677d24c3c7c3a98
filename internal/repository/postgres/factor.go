package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dealscope/internal/domain/prediction"
	"dealscope/internal/metrics"
	"dealscope/pkg/errors"
)

// Factor tables are wide: one fixed opportunity_number column, one
// prediction column holding the model's log-odds, and one column per
// feature carrying that feature's signed contribution. The repository scans
// rows dynamically since the feature set depends on the deployed model.
const (
	factorKeyColumn        = "opportunity_number"
	factorPredictionColumn = "prediction"
)

// FactorRepository implements prediction.Repository over the configured
// factor (SHAP) table.
type FactorRepository struct {
	db    DBTX
	table string
}

// NewFactorRepository creates a new factor repository.
func NewFactorRepository(db DBTX, table string) *FactorRepository {
	return &FactorRepository{db: db, table: table}
}

// ListByOpportunity returns factor rows keyed by trimmed opportunity number.
func (r *FactorRepository) ListByOpportunity(ctx context.Context, opportunityNumbers []string) (map[string]prediction.FactorRow, error) {
	out := make(map[string]prediction.FactorRow)
	if len(opportunityNumbers) == 0 {
		return out, nil
	}

	// Upstream loaders sometimes pad the key column; trim on both sides of
	// the join the way the source pipeline does.
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT * FROM %s WHERE LTRIM(RTRIM(%s)) IN (?)", r.table, factorKeyColumn),
		opportunityNumbers,
	)
	if err != nil {
		return nil, errors.Wrap(err, "build factor query")
	}

	started := time.Now()
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	metrics.RecordDBQuery("postgres", "factors_list", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExplanationFailed, err.Error())
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.MapScan(raw); err != nil {
			return nil, errors.Wrap(err, "scan factor row")
		}

		row, err := factorRowFromMap(raw)
		if err != nil {
			return nil, err
		}
		out[row.OpportunityNumber] = row
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate factor rows")
	}

	return out, nil
}

func factorRowFromMap(raw map[string]interface{}) (prediction.FactorRow, error) {
	row := prediction.FactorRow{Contributions: make(map[string]float64, len(raw))}

	for col, val := range raw {
		switch col {
		case factorKeyColumn:
			row.OpportunityNumber = strings.TrimSpace(asString(val))
		case factorPredictionColumn:
			f, ok := asFloat(val)
			if !ok {
				return row, errors.Wrapf(errors.ErrInternal, "factor row prediction column has non-numeric value %v", val)
			}
			row.LogOdds = f
		default:
			// Non-numeric extras (load timestamps etc.) are not contributions
			if f, ok := asFloat(val); ok {
				row.Contributions[col] = f
			}
		}
	}

	if row.OpportunityNumber == "" {
		return row, errors.Wrapf(errors.ErrInternal, "factor row missing %s", factorKeyColumn)
	}
	return row, nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int64:
		return float64(f), true
	case int:
		return float64(f), true
	case []byte:
		var parsed float64
		if _, err := fmt.Sscanf(string(f), "%g", &parsed); err == nil {
			return parsed, true
		}
		return 0, false
	default:
		return 0, false
	}
}
