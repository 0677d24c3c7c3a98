package prediction

import "context"

// Repository is the boundary to the precomputed model-factor table.
type Repository interface {
	// ListByOpportunity returns factor rows keyed by opportunity number.
	// Opportunities with no row are simply absent from the result.
	ListByOpportunity(ctx context.Context, opportunityNumbers []string) (map[string]FactorRow, error)
}
