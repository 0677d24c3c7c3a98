package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dealscope/internal/adapters/ai"
	"dealscope/internal/domain/deal"
	"dealscope/pkg/errors"
)

const narrativePrompt = `You are a sales analyst. Based on this pipeline run,
write the closing sections of a report.

User query: %s
Deals matched: %d
%s
Return STRICT JSON: {"insights": string, "recommendations": [string]}.
insights is 2-4 sentences of cross-deal observations. recommendations is
2-5 short imperative bullets. JSON only, no code fences.`

// ChatNarrativeProvider writes insights and recommendations with a language
// model.
type ChatNarrativeProvider struct {
	chat ai.ChatProvider
}

// NewChatNarrativeProvider creates the provider.
func NewChatNarrativeProvider(chat ai.ChatProvider) *ChatNarrativeProvider {
	return &ChatNarrativeProvider{chat: chat}
}

// Narrative summarizes the finished state.
func (p *ChatNarrativeProvider) Narrative(ctx context.Context, state *State) (Narrative, error) {
	resp, err := p.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			ai.UserMessage(fmt.Sprintf(narrativePrompt, state.Query, len(state.Deals), narrativeDigest(state))),
		},
	})
	if err != nil {
		return Narrative{}, err
	}

	var reply struct {
		Insights        string   `json:"insights"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &reply); err != nil {
		return Narrative{}, errors.Wrap(err, "parse narrative JSON")
	}
	return Narrative{Insights: reply.Insights, Recommendations: reply.Recommendations}, nil
}

// narrativeDigest condenses the state into a few prompt lines per deal. The
// full deal table would blow the context window on broad queries.
func narrativeDigest(state *State) string {
	var b strings.Builder
	for i, d := range state.Deals {
		if i == 10 {
			fmt.Fprintf(&b, "... and %d more deals\n", len(state.Deals)-i)
			break
		}
		fmt.Fprintf(&b, "- %s %q (%s, %s)", d.OpportunityNumber, d.Topic, d.AccountName, d.AccountIndustry)
		if p, ok := state.Predictions[strings.TrimSpace(d.OpportunityNumber)]; ok {
			fmt.Fprintf(&b, " win probability %.0f%%", p.Probability*100)
		}
		b.WriteString("\n")
	}
	// Walk industries in deal order so the prompt is stable across renders.
	for _, industry := range deal.Industries(state.Deals) {
		snippets, ok := state.News[industry]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- news for %s: %d items\n", industry, len(snippets))
	}
	if len(state.Errors) > 0 {
		fmt.Fprintf(&b, "- %d recoverable errors occurred during the run\n", len(state.Errors))
	}
	return b.String()
}
