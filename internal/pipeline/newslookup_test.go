package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscope/internal/adapters/news"
	"dealscope/internal/domain/deal"
	"dealscope/pkg/errors"
)

func dealsWithIndustries(industries ...string) []deal.Deal {
	out := make([]deal.Deal, len(industries))
	for i, industry := range industries {
		out[i] = testDeal("D"+string(rune('1'+i)), "t", "a", industry, 1, 0.5)
	}
	return out
}

type fakeSearcher struct {
	snippets map[string][]news.Snippet
	failFor  map[string]bool
	queries  []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]news.Snippet, error) {
	f.queries = append(f.queries, query)
	if f.failFor[query] {
		return nil, errors.ErrUnavailable
	}
	return f.snippets[query], nil
}

func TestNewsStep_GroupsByIndustry(t *testing.T) {
	searcher := &fakeSearcher{snippets: map[string][]news.Snippet{
		"latest news maritime industry": {{Title: "Freight rates climb"}},
		"latest news software industry": {{Title: "SaaS spending rebounds"}},
	}}
	step := NewNewsStep(searcher, 5)

	state := NewState("news for my deals")
	state.Deals = dealsWithIndustries("Maritime", "Maritime", "Software")
	result := step.Run(context.Background(), state)

	require.Len(t, result.News, 2)
	assert.Equal(t, "Freight rates climb", result.News["maritime"][0].Title)
	assert.Equal(t, "SaaS spending rebounds", result.News["software"][0].Title)
	// Duplicate industries collapse to one lookup each.
	assert.Len(t, searcher.queries, 2)
}

func TestNewsStep_PartialFailureKeepsOtherIndustries(t *testing.T) {
	searcher := &fakeSearcher{
		snippets: map[string][]news.Snippet{
			"latest news software industry": {{Title: "SaaS spending rebounds"}},
		},
		failFor: map[string]bool{"latest news maritime industry": true},
	}
	step := NewNewsStep(searcher, 5)

	state := NewState("news for my deals")
	state.Deals = dealsWithIndustries("Maritime", "Software")
	result := step.Run(context.Background(), state)

	require.Len(t, result.News, 1)
	assert.Contains(t, result.News, "software")
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "industry news", state.Errors[0].Source)
	assert.Contains(t, state.Errors[0].Message, `news lookup for "maritime" failed`)
}

func TestNewsStep_NoDealsNoLookups(t *testing.T) {
	searcher := &fakeSearcher{}
	step := NewNewsStep(searcher, 5)

	state := NewState("news please")
	result := step.Run(context.Background(), state)

	assert.Empty(t, result.News)
	assert.Empty(t, searcher.queries)
}
