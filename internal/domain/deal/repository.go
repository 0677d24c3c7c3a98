package deal

import "context"

// Repository is the tabular data boundary for open deals.
type Repository interface {
	// Schema returns column names and types of the deals table.
	Schema(ctx context.Context) ([]Column, error)

	// List returns open deals, most recent first. where is an optional SQL
	// condition fragment (without the WHERE keyword); empty means all open
	// deals. An empty result is a normal outcome, not an error.
	List(ctx context.Context, where string) ([]Deal, error)
}
