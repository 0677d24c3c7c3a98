package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"dealscope/internal/adapters/news"
	"dealscope/internal/domain/deal"
)

func multiIndustryState() *State {
	state := NewState("how are deals doing across sectors")
	state.Selected = DefaultSteps()
	state.News = map[string][]news.Snippet{}
	for i, industry := range []string{"Maritime", "Energy", "Retail", "Logistics", "Aviation"} {
		id := fmt.Sprintf("D%d", i+1)
		state.Deals = append(state.Deals, testDeal(id, "Deal "+id, "Acct "+id, industry, 50000, 0.5))
		state.News[deal.Deal{AccountIndustry: industry}.Industry()] = []news.Snippet{
			{Title: industry + " update", Text: "short item", Source: "wire"},
		}
	}
	return state
}

func TestNarrativeDigestIsStable(t *testing.T) {
	state := multiIndustryState()

	first := narrativeDigest(state)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, narrativeDigest(state), "digest changed between calls")
	}
}

func TestRenderIsIdempotentThroughChatNarrative(t *testing.T) {
	// The fake echoes its prompt back as the insights text, so any prompt
	// drift between renders would surface in the report.
	chat := &fakeChat{reply: func(prompt string) (string, error) {
		quoted, err := json.Marshal("saw: " + prompt)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`{"insights": %s, "recommendations": ["hold course"]}`, quoted), nil
	}}
	agg := NewAggregator(NewChatNarrativeProvider(chat))
	state := multiIndustryState()

	first, err := agg.Render(context.Background(), state)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := agg.Render(context.Background(), state)
		require.NoError(t, err)
		require.Equal(t, first, again, "report changed between renders of the same state")
	}
}
