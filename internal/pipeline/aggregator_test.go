package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscope/internal/adapters/news"
	"dealscope/internal/domain/deal"
	"dealscope/internal/domain/prediction"
	"dealscope/pkg/errors"
)

// staticNarrative returns a fixed narrative, making reports deterministic.
type staticNarrative struct {
	narrative Narrative
	err       error
}

func (s *staticNarrative) Narrative(context.Context, *State) (Narrative, error) {
	return s.narrative, s.err
}

func testDeal(id, topic, account, industry string, value int64, winProb float64) deal.Deal {
	return deal.Deal{
		OpportunityNumber: id,
		Topic:             topic,
		AccountName:       account,
		AccountIndustry:   industry,
		OpportunityType:   "New Business",
		Status:            "Open",
		ExpectedValue:     decimal.NewFromInt(value),
		WinProbability:    winProb,
		CreatedOn:         time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC),
	}
}

func fullState() *State {
	state := NewState("analyze my maritime deals")
	state.Filters = "account_industry ILIKE '%maritime%'"
	state.Selected = DefaultSteps()
	state.Deals = []deal.Deal{
		testDeal("D1", "Fleet tracking rollout", "Poseidon Lines", "Maritime", 120000, 0.55),
		testDeal("D2", "Port automation", "Harbor Corp", "Maritime", 80000, 0.30),
	}
	state.Predictions = map[string]prediction.Prediction{
		"D2": {
			OpportunityNumber: "D2",
			Probability:       0.312,
			Factors: []prediction.Factor{
				{Name: "deal_age_days", Contribution: -0.8},
				{Name: "engagement_score", Contribution: 0.4},
			},
			Summary: "The model leans negative because the deal has gone stale.",
		},
	}
	state.News = map[string][]news.Snippet{
		"maritime": {
			{Title: "Freight rates climb", Text: "Container rates rose 4%", Source: "MarineWatch"},
		},
	}
	return state
}

func TestAggregator_RenderFullReport(t *testing.T) {
	agg := NewAggregator(&staticNarrative{narrative: Narrative{
		Insights:        "Maritime deals skew older than the rest of the pipeline.",
		Recommendations: []string{"Re-engage Poseidon Lines this week"},
	}})

	report, err := agg.Render(context.Background(), fullState())
	require.NoError(t, err)

	for _, heading := range []string{
		"## 1. What We Looked At",
		"## 2. Deals",
		"## 3. Model Outputs",
		"## 4. Industry News",
		"## 5. Key Insights",
		"## 6. Recommendations",
		"## 7. Risks & Data Gaps",
	} {
		assert.Contains(t, report, heading)
	}

	assert.Contains(t, report, "Poseidon Lines")
	assert.Contains(t, report, "120,000")
	assert.Contains(t, report, "31.2%")
	assert.Contains(t, report, "Freight rates climb")
	assert.Contains(t, report, "Re-engage Poseidon Lines this week")
}

func TestAggregator_MarksMissingModelDataAsGap(t *testing.T) {
	agg := NewAggregator(nil)

	report, err := agg.Render(context.Background(), fullState())
	require.NoError(t, err)

	// D1 has no factor row: explained as unavailable, counted as a gap.
	assert.Contains(t, report, "Model explanation unavailable for this deal")
	assert.Contains(t, report, "Model factor data missing for 1 of 2 deals.")
	// D2 is fully explained.
	assert.Contains(t, report, "gone stale")
}

func TestAggregator_RenderIsIdempotent(t *testing.T) {
	agg := NewAggregator(&staticNarrative{narrative: Narrative{Insights: "Stable."}})
	state := fullState()
	state.RecordError("industry news", "lookup for \"maritime\" timed out")

	first, err := agg.Render(context.Background(), state)
	require.NoError(t, err)
	second, err := agg.Render(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregator_RenderIsTotalOnEmptyRun(t *testing.T) {
	agg := NewAggregator(nil)

	state := NewState("anything out there?")
	state.Selected = DefaultSteps()
	state.RecordError("retrieval", "connection refused")

	report, err := agg.Render(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, report, "_No open deals matched the filters._")
	assert.Contains(t, report, "[retrieval] connection refused")
	assert.Contains(t, report, "_Narrative insights unavailable for this run._")
	assert.Equal(t, 7, strings.Count(report, "\n## "))
}

func TestAggregator_SkippedSectionsAreMarked(t *testing.T) {
	agg := NewAggregator(nil)

	state := NewState("show me the latest open deal")
	state.Selected = NewStepSet(StepRetrieval)
	state.Deals = []deal.Deal{testDeal("D9", "CRM renewal", "Acme", "Software", 5000, 0.9)}

	report, err := agg.Render(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, report, "D9")
	assert.Equal(t, 2, strings.Count(report, "_Not requested for this query._"))
}

func TestAggregator_DealsTableRendersWhenOnlyExplainSelected(t *testing.T) {
	agg := NewAggregator(nil)

	state := NewState("why are my software deals stalling")
	state.Selected = NewStepSet(StepExplain)
	state.Deals = []deal.Deal{testDeal("D7", "CRM renewal", "Acme", "Software", 5000, 0.9)}
	state.Predictions = map[string]prediction.Prediction{
		"D7": {OpportunityNumber: "D7", Probability: 0.9, Summary: "Strong engagement."},
	}

	report, err := agg.Render(context.Background(), state)
	require.NoError(t, err)

	// Retrieval ran to feed the explanation, so the table shows up even
	// though the router did not select it explicitly.
	assert.Contains(t, report, "| D7 ")
	assert.Equal(t, 1, strings.Count(report, "_Not requested for this query._"))
}

func TestAggregator_RejectsStateWithoutQuery(t *testing.T) {
	agg := NewAggregator(nil)

	_, err := agg.Render(context.Background(), &State{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = agg.Render(context.Background(), nil)
	require.Error(t, err)
}

func TestAggregator_NarrativeFailureBecomesRisk(t *testing.T) {
	agg := NewAggregator(&staticNarrative{err: errors.ErrUnavailable})

	report, err := agg.Render(context.Background(), fullState())
	require.NoError(t, err)

	assert.Contains(t, report, "Narrative generation failed")
	assert.Contains(t, report, "_Narrative insights unavailable for this run._")
}
