package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscope/internal/domain/deal"
	"dealscope/internal/domain/prediction"
	"dealscope/pkg/errors"
)

type fakeFactorRepo struct {
	rows map[string]prediction.FactorRow
	err  error
}

func (f *fakeFactorRepo) ListByOpportunity(_ context.Context, ids []string) (map[string]prediction.FactorRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]prediction.FactorRow, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func explainState(deals ...deal.Deal) *State {
	state := NewState("explain these deals")
	state.Selected = NewStepSet(StepExplain)
	state.Deals = deals
	return state
}

func TestExplainStep_ExplainsDealsWithFactorRows(t *testing.T) {
	repo := &fakeFactorRepo{rows: map[string]prediction.FactorRow{
		"D1": {
			OpportunityNumber: "D1",
			LogOdds:           0.0,
			Contributions:     map[string]float64{"engagement_score": 0.6, "deal_age_days": -0.2},
		},
	}}
	chat := &fakeChat{reply: func(string) (string, error) {
		return "Engagement is strong. Follow up with the economic buyer.", nil
	}}
	step := NewExplainStep(chat, repo, 0)

	state := explainState(
		testDeal("D1", "Fleet tracking", "Poseidon", "Maritime", 100, 0.5),
		testDeal("D2", "Port automation", "Harbor", "Maritime", 200, 0.4),
	)
	result, err := step.Run(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, result.Predictions, 1)
	p := result.Predictions["D1"]
	assert.InDelta(t, 0.5, p.Probability, 1e-9)
	require.Len(t, p.Factors, 2)
	assert.Equal(t, "engagement_score", p.Factors[0].Name)
	assert.Contains(t, p.Summary, "economic buyer")

	// D2 has no factor row and simply gets no prediction.
	_, ok := result.Predictions["D2"]
	assert.False(t, ok)
}

func TestExplainStep_SummaryFallsBackWhenChatFails(t *testing.T) {
	repo := &fakeFactorRepo{rows: map[string]prediction.FactorRow{
		"D1": {
			OpportunityNumber: "D1",
			LogOdds:           -1.0,
			Contributions:     map[string]float64{"deal_age_days": -0.9, "engagement_score": 0.3},
		},
	}}
	chat := &fakeChat{reply: func(string) (string, error) {
		return "", errors.ErrUnavailable
	}}
	step := NewExplainStep(chat, repo, 0)

	state := explainState(testDeal("D1", "Fleet tracking", "Poseidon", "Maritime", 100, 0.5))
	result, err := step.Run(context.Background(), state)
	require.NoError(t, err)

	p := result.Predictions["D1"]
	assert.Contains(t, p.Summary, "win probability")
	assert.Contains(t, p.Summary, "deal_age_days")
	assert.Contains(t, p.Summary, "Suggested action")
}

func TestExplainStep_CapsExplainedDeals(t *testing.T) {
	repo := &fakeFactorRepo{rows: map[string]prediction.FactorRow{
		"D1": {OpportunityNumber: "D1", Contributions: map[string]float64{"a": 1}},
		"D2": {OpportunityNumber: "D2", Contributions: map[string]float64{"a": 1}},
	}}
	chat := &fakeChat{reply: func(string) (string, error) { return "ok", nil }}
	step := NewExplainStep(chat, repo, 1)

	state := explainState(
		testDeal("D1", "t", "a", "i", 1, 0.5),
		testDeal("D2", "t", "a", "i", 1, 0.5),
	)
	result, err := step.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Len(t, result.Predictions, 1)
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0].Message, "explained first 1 of 2 deals")
}

func TestExplainStep_FactorTableFailureIsFatal(t *testing.T) {
	repo := &fakeFactorRepo{err: errors.ErrInternal}
	chat := &fakeChat{reply: func(string) (string, error) { return "ok", nil }}
	step := NewExplainStep(chat, repo, 0)

	state := explainState(testDeal("D1", "t", "a", "i", 1, 0.5))
	_, err := step.Run(context.Background(), state)
	require.Error(t, err)
}

func TestExplainStep_NoDealsIsNoOp(t *testing.T) {
	step := NewExplainStep(&fakeChat{reply: func(string) (string, error) { return "", nil }}, &fakeFactorRepo{}, 0)

	result, err := step.Run(context.Background(), explainState())
	require.NoError(t, err)
	assert.Empty(t, result.Predictions)
}
