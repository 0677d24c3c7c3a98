package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dealscope/internal/adapters/ai"
	"dealscope/pkg/errors"
	"dealscope/pkg/logger"
)

// sourceRouter tags router-originated entries in State.Errors.
const sourceRouter = "router"

const routerPrompt = `You are a planner for a sales analytics assistant.
User query: %s

1) Extract a concise SQL WHERE clause to filter deals in table %s.
2) Decide which agents to call:
   - "1" Retrieval: query open deals
   - "2" Explain: explain ML win probability using per-feature factor contributions
   - "3" News: search for related industry news
Return STRICT JSON with keys: filters (string), agents (array of strings from ["1","2","3"]).
Return the JSON object only, no code fences, no commentary.
If unsure, use empty string for filters and agents=["1","2","3"].`

// Decision is the router's structured output: the filters to scope
// retrieval with and the validated set of steps to run next.
type Decision struct {
	Filters string
	Steps   StepSet

	// ParseError carries the recoverable routing failure, if any. When set,
	// Steps is the full default set.
	ParseError *StepError
}

// routerReply mirrors the planner's wire contract: exactly two fields.
type routerReply struct {
	Filters string   `json:"filters"`
	Agents  []string `json:"agents"`
}

// ParseDecision strictly parses a planner reply. It accepts only a JSON
// object with a string "filters" and a non-empty "agents" array containing
// at least one known step identifier; unknown identifiers are dropped
// silently. Anything else is a parse failure.
func ParseDecision(raw string) (Decision, error) {
	raw = stripCodeFence(raw)

	var reply routerReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Decision{}, errors.Wrap(errors.ErrRouterParse, err.Error())
	}

	steps := NewStepSet()
	for _, id := range reply.Agents {
		if KnownStep(id) {
			steps[Step(id)] = struct{}{}
		}
	}
	if len(steps) == 0 {
		return Decision{}, errors.Wrapf(errors.ErrRouterParse, "no known step identifiers in %v", reply.Agents)
	}

	return Decision{Filters: reply.Filters, Steps: steps}, nil
}

// IntentRouter turns a free-text query into a Decision. Routing failures
// never propagate: they degrade to the full default step set with the
// failure recorded, so the user always gets some answer.
type IntentRouter struct {
	chat  ai.ChatProvider
	table string
	log   *logger.Logger
}

// NewIntentRouter creates the router. table is the deals table identifier
// included in the planner prompt.
func NewIntentRouter(chat ai.ChatProvider, table string) *IntentRouter {
	return &IntentRouter{
		chat:  chat,
		table: table,
		log:   logger.Get().With("component", "intent_router"),
	}
}

// Route decides filters and selected steps for the query. It never returns
// an error; malformed planner replies fall back to running everything.
func (r *IntentRouter) Route(ctx context.Context, query string) Decision {
	resp, err := r.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			ai.UserMessage(fmt.Sprintf(routerPrompt, query, r.table)),
		},
	})
	if err != nil {
		r.log.Warnw("Planner call failed, running all steps", "error", err)
		return Decision{
			Steps: DefaultSteps(),
			ParseError: &StepError{
				Source:  sourceRouter,
				Message: fmt.Sprintf("planner call failed: %v; defaulting to all steps", err),
			},
		}
	}

	raw := strings.TrimSpace(resp.Content)
	r.log.Debugw("Planner reply", "raw", raw)

	decision, err := ParseDecision(raw)
	if err != nil {
		r.log.Warnw("Planner reply unparseable, running all steps", "error", err)
		return Decision{
			Steps: DefaultSteps(),
			ParseError: &StepError{
				Source:  sourceRouter,
				Message: fmt.Sprintf("failed to parse planner JSON: %v; raw: %s; defaulting to all steps", err, truncate(raw, 200)),
			},
		}
	}

	r.log.Infow("Routing decided",
		"filters", decision.Filters,
		"steps", decision.Steps.Names(),
	)
	return decision
}

// stripCodeFence removes a surrounding Markdown code fence if the model
// wrapped its JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
