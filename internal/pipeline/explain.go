package pipeline

import (
	"context"
	"fmt"
	"strings"

	"dealscope/internal/adapters/ai"
	"dealscope/internal/domain/deal"
	"dealscope/internal/domain/prediction"
	"dealscope/pkg/logger"
)

const explainPrompt = `You explain a sales win-probability model to an account manager.
Deal %s (%s, account %s): predicted win probability %.1f%%.
Strongest positive factors: %s
Strongest negative factors: %s

Write 2-3 sentences: why the model leans this way, and exactly one concrete
action the account manager should take. Plain prose, no headings.`

// topDriverCount bounds how many drivers per sign feed prompts and reports.
const topDriverCount = 3

// ExplainResult is the explanation step's output, merged into State by the
// driver. Deals without a factor row have no entry.
type ExplainResult struct {
	Predictions map[string]prediction.Prediction
}

// ExplainStep turns precomputed factor rows into per-deal explanations:
// a win probability, ranked drivers and a short narrative summary.
type ExplainStep struct {
	chat    ai.ChatProvider
	repo    prediction.Repository
	maxRows int
	log     *logger.Logger
}

// NewExplainStep creates the explanation step. maxRows caps how many deals
// receive an LLM-written summary per request; non-positive means no cap.
func NewExplainStep(chat ai.ChatProvider, repo prediction.Repository, maxRows int) *ExplainStep {
	return &ExplainStep{
		chat:    chat,
		repo:    repo,
		maxRows: maxRows,
		log:     logger.Get().With("component", "explain"),
	}
}

// Run explains every retrieved deal that has a factor row. Per-deal summary
// failures degrade to a deterministic summary; only a factor-table failure
// is returned as an error.
func (s *ExplainStep) Run(ctx context.Context, state *State) (ExplainResult, error) {
	deals := state.Deals
	if len(deals) == 0 {
		return ExplainResult{Predictions: map[string]prediction.Prediction{}}, nil
	}

	if s.maxRows > 0 && len(deals) > s.maxRows {
		state.RecordError(StepExplain.Name(), fmt.Sprintf("explained first %d of %d deals", s.maxRows, len(deals)))
		deals = deals[:s.maxRows]
	}

	rows, err := s.repo.ListByOpportunity(ctx, deal.OpportunityNumbers(deals))
	if err != nil {
		return ExplainResult{}, err
	}

	predictions := make(map[string]prediction.Prediction, len(rows))
	for _, d := range deals {
		id := strings.TrimSpace(d.OpportunityNumber)
		row, ok := rows[id]
		if !ok {
			// No factor row for this deal; the aggregator reports the gap.
			continue
		}

		p := prediction.Prediction{
			OpportunityNumber: id,
			Probability:       row.Probability(),
			Factors:           row.RankedFactors(),
		}
		p.Summary = s.summarize(ctx, d, row)
		predictions[id] = p
	}

	s.log.Infow("Explained deals", "explained", len(predictions), "requested", len(deals))
	return ExplainResult{Predictions: predictions}, nil
}

// summarize writes the narrative part of a prediction. LLM failures fall
// back to a deterministic sentence built from the top drivers, so every
// explained deal gets some summary.
func (s *ExplainStep) summarize(ctx context.Context, d deal.Deal, row prediction.FactorRow) string {
	positive, negative := row.TopDrivers(topDriverCount)

	resp, err := s.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			ai.UserMessage(fmt.Sprintf(explainPrompt,
				d.OpportunityNumber, d.Topic, d.AccountName,
				row.Probability()*100,
				formatFactors(positive), formatFactors(negative),
			)),
		},
	})
	if err == nil {
		if summary := strings.TrimSpace(resp.Content); summary != "" {
			return summary
		}
	} else {
		s.log.Warnw("Summary generation failed, using fallback", "opportunity", d.OpportunityNumber, "error", err)
	}

	return fallbackSummary(row.Probability(), positive, negative)
}

// fallbackSummary is the deterministic summary used when the model cannot
// be reached.
func fallbackSummary(probability float64, positive, negative []prediction.Factor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The model predicts a %.1f%% win probability.", probability*100)
	if len(positive) > 0 {
		fmt.Fprintf(&b, " Working in favor: %s.", formatFactors(positive))
	}
	if len(negative) > 0 {
		fmt.Fprintf(&b, " Working against: %s.", formatFactors(negative))
		fmt.Fprintf(&b, " Suggested action: address %s.", negative[0].Name)
	}
	return b.String()
}

func formatFactors(factors []prediction.Factor) string {
	if len(factors) == 0 {
		return "none"
	}
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = fmt.Sprintf("%s (%+.3f)", f.Name, f.Contribution)
	}
	return strings.Join(parts, ", ")
}
