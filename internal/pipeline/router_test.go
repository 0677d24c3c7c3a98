package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscope/internal/adapters/ai"
	"dealscope/pkg/errors"
)

// fakeChat scripts ChatProvider replies for tests. reply receives the last
// user message.
type fakeChat struct {
	reply func(prompt string) (string, error)
	calls int
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	f.calls++
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	content, err := f.reply(prompt)
	if err != nil {
		return nil, err
	}
	return &ai.ChatResponse{Content: content}, nil
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    StepSet
		filters string
		wantErr bool
	}{
		{
			name:    "single step",
			raw:     `{"filters": "latest open deal", "agents": ["1"]}`,
			want:    NewStepSet(StepRetrieval),
			filters: "latest open deal",
		},
		{
			name: "all steps",
			raw:  `{"filters": "", "agents": ["1", "2", "3"]}`,
			want: DefaultSteps(),
		},
		{
			name: "unknown identifiers dropped",
			raw:  `{"filters": "", "agents": ["2", "7", "weather"]}`,
			want: NewStepSet(StepExplain),
		},
		{
			name: "code fence stripped",
			raw:  "```json\n{\"filters\": \"\", \"agents\": [\"3\"]}\n```",
			want: NewStepSet(StepNews),
		},
		{
			name:    "not json",
			raw:     "I think you should run the retrieval agent",
			wantErr: true,
		},
		{
			name:    "empty agents",
			raw:     `{"filters": "x", "agents": []}`,
			wantErr: true,
		},
		{
			name:    "only unknown agents",
			raw:     `{"filters": "", "agents": ["9"]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := ParseDecision(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrRouterParse))
				return
			}
			require.NoError(t, err)
			assert.True(t, decision.Steps.Equal(tt.want), "got %v want %v", decision.Steps.Names(), tt.want.Names())
			assert.Equal(t, tt.filters, decision.Filters)
		})
	}
}

func TestIntentRouter_SubsetSelection(t *testing.T) {
	chat := &fakeChat{reply: func(string) (string, error) {
		return `{"filters": "latest open deal", "agents": ["1"]}`, nil
	}}
	router := NewIntentRouter(chat, "open_deals")

	decision := router.Route(context.Background(), "show me the latest open deal")

	require.Nil(t, decision.ParseError)
	assert.Equal(t, "latest open deal", decision.Filters)
	assert.True(t, decision.Steps.Equal(NewStepSet(StepRetrieval)))
	assert.False(t, decision.Steps.Has(StepExplain))
	assert.False(t, decision.Steps.Has(StepNews))
}

func TestIntentRouter_MalformedReplyFallsBackToAllSteps(t *testing.T) {
	chat := &fakeChat{reply: func(string) (string, error) {
		return "not json", nil
	}}
	router := NewIntentRouter(chat, "open_deals")

	decision := router.Route(context.Background(), "analyze my pipeline")

	assert.True(t, decision.Steps.Equal(DefaultSteps()))
	require.NotNil(t, decision.ParseError)
	assert.Equal(t, "router", decision.ParseError.Source)
	assert.Contains(t, decision.ParseError.Message, "defaulting to all steps")
}

func TestIntentRouter_ProviderFailureFallsBackToAllSteps(t *testing.T) {
	chat := &fakeChat{reply: func(string) (string, error) {
		return "", errors.ErrUnavailable
	}}
	router := NewIntentRouter(chat, "open_deals")

	decision := router.Route(context.Background(), "analyze my pipeline")

	assert.True(t, decision.Steps.Equal(DefaultSteps()))
	require.NotNil(t, decision.ParseError)
	assert.Equal(t, "router", decision.ParseError.Source)
}
