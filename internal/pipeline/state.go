package pipeline

import (
	"github.com/google/uuid"

	"dealscope/internal/adapters/news"
	"dealscope/internal/domain/deal"
	"dealscope/internal/domain/prediction"
)

// StepError is one recoverable failure recorded during a run. Errors are
// never fatal to the pipeline; the aggregator surfaces all of them in the
// report's risks section.
type StepError struct {
	Source  string // "router" or a step name
	Message string
}

// State is the per-request record threaded through the pipeline. It is
// created fresh for every user request and discarded after the report is
// rendered. The driver owns all writes: each step returns its output and
// the driver merges it into the step's own slot, so an abandoned in-flight
// step can never corrupt the record.
type State struct {
	RequestID uuid.UUID

	// Query is the original free-text request. Immutable once set.
	Query string

	// Filters is the constraint the router extracted from the query.
	Filters string

	// Selected is decided exactly once by the router before any optional
	// step runs and never mutated afterward.
	Selected StepSet

	// Condition is the SQL condition fragment retrieval generated; kept for
	// diagnostics and the report summary.
	Condition string

	// Deals is the retrieval output, most relevant first. An empty slice is
	// a valid outcome, distinct from the slot never being populated.
	Deals []deal.Deal

	// Predictions maps opportunity number to its explanation. Deals without
	// model data have no entry; the aggregator reports those as gaps.
	Predictions map[string]prediction.Prediction

	// News maps industry to snippets.
	News map[string][]news.Snippet

	// Errors is the ordered list of recoverable failures.
	Errors []StepError
}

// NewState creates the state record for one request.
func NewState(query string) *State {
	return &State{
		RequestID: uuid.New(),
		Query:     query,
	}
}

// RecordError appends one recoverable error.
func (s *State) RecordError(source string, message string) {
	s.Errors = append(s.Errors, StepError{Source: source, Message: message})
}
