package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealscope/internal/domain/deal"
	"dealscope/internal/metrics"
	"dealscope/pkg/errors"
)

// dealColumns is the fixed projection used for listings. The deals table may
// carry more columns; these are the ones the report needs, and
// opportunity_number must always be present as the join key.
const dealColumns = `opportunity_number, topic, account_name, account_industry,
       opportunity_type, op_status, expected_value, win_probability,
       predicted_outcome, op_created_on`

// DealRepository implements deal.Repository over the configured deals table.
type DealRepository struct {
	db    DBTX
	table string
}

// NewDealRepository creates a new deal repository.
// table is the configured deals table identifier (may be schema-qualified).
func NewDealRepository(db DBTX, table string) *DealRepository {
	return &DealRepository{db: db, table: table}
}

// Schema returns column names and types from information_schema.
func (r *DealRepository) Schema(ctx context.Context) ([]deal.Column, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	started := time.Now()
	var cols []deal.Column
	err := r.db.SelectContext(ctx, &cols, query, baseTableName(r.table))
	metrics.RecordDBQuery("postgres", "deals_schema", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrap(err, "deals table schema")
	}
	return cols, nil
}

// List returns open deals ordered most recent first. where is an optional
// condition fragment; it is sanity-checked before interpolation.
func (r *DealRepository) List(ctx context.Context, where string) ([]deal.Deal, error) {
	where = strings.TrimSpace(where)
	if where != "" {
		if err := guardWhere(where); err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s", dealColumns, r.table)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY op_created_on DESC"

	started := time.Now()
	deals := []deal.Deal{}
	err := r.db.SelectContext(ctx, &deals, query)
	metrics.RecordDBQuery("postgres", "deals_list", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrRetrievalFailed, err.Error())
	}
	return deals, nil
}

// guardWhere rejects fragments that could escape the single-statement
// SELECT the repository builds. The fragment comes from an LLM, so it is
// untrusted input even though it never carries user-supplied literals
// directly.
func guardWhere(where string) error {
	lowered := strings.ToLower(where)

	if strings.ContainsAny(where, ";") {
		return errors.Wrapf(errors.ErrInvalidInput, "where fragment contains statement separator")
	}
	if strings.Contains(lowered, "--") || strings.Contains(lowered, "/*") {
		return errors.Wrapf(errors.ErrInvalidInput, "where fragment contains comment")
	}

	for _, kw := range []string{"insert ", "update ", "delete ", "drop ", "alter ", "truncate ", "grant ", "create "} {
		if strings.Contains(lowered, kw) {
			return errors.Wrapf(errors.ErrInvalidInput, "where fragment contains forbidden keyword %q", strings.TrimSpace(kw))
		}
	}
	return nil
}

// baseTableName strips any schema qualification, mirroring how the schema
// introspection query matches on the bare table name.
func baseTableName(table string) string {
	parts := strings.Split(table, ".")
	return parts[len(parts)-1]
}
