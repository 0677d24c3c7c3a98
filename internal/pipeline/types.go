package pipeline

import "sort"

// Step identifies one optional unit of work in the pipeline. The wire
// vocabulary is fixed by the planner contract: the router's language model
// answers with these identifiers.
type Step string

const (
	// StepRetrieval queries open deals from the tabular source
	StepRetrieval Step = "1"

	// StepExplain explains model win probabilities from factor rows
	StepExplain Step = "2"

	// StepNews searches recent industry news for matched accounts
	StepNews Step = "3"
)

// Name returns the human-readable step name used in reports and logs.
func (s Step) Name() string {
	switch s {
	case StepRetrieval:
		return "retrieval"
	case StepExplain:
		return "model explanation"
	case StepNews:
		return "industry news"
	default:
		return string(s)
	}
}

// KnownStep reports whether id belongs to the step vocabulary.
func KnownStep(id string) bool {
	switch Step(id) {
	case StepRetrieval, StepExplain, StepNews:
		return true
	default:
		return false
	}
}

// StepSet is an immutable-by-convention set of selected steps. The router
// decides it exactly once per request; later stages only read it.
type StepSet map[Step]struct{}

// NewStepSet builds a set from the given steps.
func NewStepSet(steps ...Step) StepSet {
	set := make(StepSet, len(steps))
	for _, s := range steps {
		set[s] = struct{}{}
	}
	return set
}

// DefaultSteps returns the full fallback set: run everything.
func DefaultSteps() StepSet {
	return NewStepSet(StepRetrieval, StepExplain, StepNews)
}

// Has reports membership.
func (s StepSet) Has(step Step) bool {
	_, ok := s[step]
	return ok
}

// List returns the steps in vocabulary order.
func (s StepSet) List() []Step {
	out := make([]Step, 0, len(s))
	for step := range s {
		out = append(out, step)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns human-readable names in vocabulary order.
func (s StepSet) Names() []string {
	steps := s.List()
	out := make([]string, len(steps))
	for i, step := range steps {
		out[i] = step.Name()
	}
	return out
}

// NeedsRetrieval reports whether any selected step depends on retrieved
// deals. Explanation and news both consume retrieval output, so selecting
// either implies running retrieval first.
func (s StepSet) NeedsRetrieval() bool {
	return s.Has(StepRetrieval) || s.Has(StepExplain) || s.Has(StepNews)
}

// Equal reports set equality.
func (s StepSet) Equal(other StepSet) bool {
	if len(s) != len(other) {
		return false
	}
	for step := range s {
		if !other.Has(step) {
			return false
		}
	}
	return true
}
