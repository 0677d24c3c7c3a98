package pipeline

import (
	"context"
	"fmt"
	"strings"

	"dealscope/internal/adapters/ai"
	"dealscope/internal/domain/deal"
	"dealscope/pkg/logger"
)

const conditionPrompt = `You translate a filter request into a single SQL condition.
Table %s has columns:
%s

Filter request: %s

Return ONLY the condition fragment that goes after WHERE, for PostgreSQL.
Use ILIKE for text matching. Do not include the WHERE keyword, no code
fences, no commentary. If no filtering is needed, return NONE.`

// RetrievalResult is the retrieval step's output, merged into State by the
// driver.
type RetrievalResult struct {
	// Condition is the SQL fragment actually used, empty when listing all
	// open deals.
	Condition string
	Deals     []deal.Deal
}

// RetrievalStep queries open deals scoped by the router's filters. The
// filter text is translated into a SQL condition against the live table
// schema; if translation or the generated condition fails, the step
// degrades to broader listings rather than failing the request.
type RetrievalStep struct {
	chat  ai.ChatProvider
	repo  deal.Repository
	table string
	log   *logger.Logger
}

// NewRetrievalStep creates the retrieval step.
func NewRetrievalStep(chat ai.ChatProvider, repo deal.Repository, table string) *RetrievalStep {
	return &RetrievalStep{
		chat:  chat,
		repo:  repo,
		table: table,
		log:   logger.Get().With("component", "retrieval"),
	}
}

// Run lists deals matching filters. Recoverable problems are recorded on
// state; the returned error is reserved for total failure (no deals could
// be listed at all).
func (s *RetrievalStep) Run(ctx context.Context, state *State) (RetrievalResult, error) {
	filters := strings.TrimSpace(state.Filters)
	if filters == "" {
		deals, err := s.repo.List(ctx, "")
		if err != nil {
			return RetrievalResult{}, err
		}
		return RetrievalResult{Deals: deals}, nil
	}

	condition := s.generateCondition(ctx, state, filters)

	deals, err := s.repo.List(ctx, condition)
	if err == nil {
		return RetrievalResult{Condition: condition, Deals: deals}, nil
	}
	if condition == "" {
		return RetrievalResult{}, err
	}

	// The generated condition was rejected or did not execute. Fall back
	// to the unfiltered listing so downstream steps still have deals.
	state.RecordError(StepRetrieval.Name(), fmt.Sprintf("condition %q failed: %v; listed all open deals instead", condition, err))
	s.log.Warnw("Generated condition failed, listing all deals", "condition", condition, "error", err)

	deals, err = s.repo.List(ctx, "")
	if err != nil {
		return RetrievalResult{}, err
	}
	return RetrievalResult{Deals: deals}, nil
}

// generateCondition asks the model for a schema-aware SQL condition. On any
// failure it falls back to the router's raw filter text, which is often
// already a usable fragment.
func (s *RetrievalStep) generateCondition(ctx context.Context, state *State, filters string) string {
	cols, err := s.repo.Schema(ctx)
	if err != nil {
		state.RecordError(StepRetrieval.Name(), fmt.Sprintf("schema lookup failed: %v", err))
		s.log.Warnw("Schema lookup failed, using raw filters", "error", err)
		return filters
	}

	resp, err := s.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			ai.UserMessage(fmt.Sprintf(conditionPrompt, s.table, formatSchema(cols), filters)),
		},
	})
	if err != nil {
		state.RecordError(StepRetrieval.Name(), fmt.Sprintf("condition generation failed: %v", err))
		s.log.Warnw("Condition generation failed, using raw filters", "error", err)
		return filters
	}

	condition := stripCodeFence(resp.Content)
	condition = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(condition), "WHERE"))
	if condition == "" || strings.EqualFold(condition, "NONE") {
		return ""
	}

	s.log.Debugw("Generated condition", "condition", condition)
	return condition
}

func formatSchema(cols []deal.Column) string {
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "  %s %s\n", c.Name, c.DataType)
	}
	if b.Len() == 0 {
		return "  (schema unavailable)"
	}
	return b.String()
}
