package pipeline

import (
	"context"
	"fmt"

	"dealscope/internal/adapters/news"
	"dealscope/internal/domain/deal"
	"dealscope/pkg/logger"
)

// NewsResult is the context-lookup step's output, snippets grouped by
// industry, merged into State by the driver.
type NewsResult struct {
	News map[string][]news.Snippet
}

// NewsStep fetches recent news for each distinct industry among the
// retrieved deals. Per-industry failures are recorded and skipped so one
// flaky lookup never drops the others.
type NewsStep struct {
	searcher    news.Searcher
	maxSnippets int
	log         *logger.Logger
}

// NewNewsStep creates the news lookup step. maxSnippets caps results per
// industry.
func NewNewsStep(searcher news.Searcher, maxSnippets int) *NewsStep {
	return &NewsStep{
		searcher:    searcher,
		maxSnippets: maxSnippets,
		log:         logger.Get().With("component", "news_lookup"),
	}
}

// Run looks up news per industry. It never returns an error: an empty map
// with recorded errors is the worst outcome.
func (s *NewsStep) Run(ctx context.Context, state *State) NewsResult {
	industries := deal.Industries(state.Deals)
	result := NewsResult{News: make(map[string][]news.Snippet, len(industries))}

	for _, industry := range industries {
		if err := ctx.Err(); err != nil {
			state.RecordError(StepNews.Name(), fmt.Sprintf("lookup canceled: %v", err))
			break
		}

		query := fmt.Sprintf("latest news %s industry", industry)
		snippets, err := s.searcher.Search(ctx, query, s.maxSnippets)
		if err != nil {
			state.RecordError(StepNews.Name(), fmt.Sprintf("news lookup for %q failed: %v", industry, err))
			s.log.Warnw("News lookup failed", "industry", industry, "error", err)
			continue
		}
		if len(snippets) == 0 {
			continue
		}
		result.News[industry] = snippets
	}

	s.log.Infow("News lookup finished", "industries", len(industries), "with_results", len(result.News))
	return result
}
