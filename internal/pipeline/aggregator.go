package pipeline

import (
	"context"
	"fmt"
	"strings"

	"dealscope/pkg/errors"
	"dealscope/pkg/logger"
	"dealscope/pkg/templates"
)

const reportTemplateID = "report/analysis"

// ReportDeal is one row of the report's deals table, pre-formatted.
type ReportDeal struct {
	Opportunity    string
	Topic          string
	Account        string
	Industry       string
	Type           string
	Status         string
	Value          string
	WinProbability string
	Created        string
}

// ReportDriver is one formatted factor line.
type ReportDriver struct {
	Name         string
	Contribution string
}

// ModelOutput is one deal's explanation block. Available is false when the
// factor table had no row for the deal.
type ModelOutput struct {
	Opportunity string
	Available   bool
	Probability string
	Drivers     []ReportDriver
	Summary     string
}

// NewsItem is one rendered snippet.
type NewsItem struct {
	Title  string
	Text   string
	Source string
}

// NewsGroup is the news block for one industry.
type NewsGroup struct {
	Industry string
	Items    []NewsItem
}

// ReportData is the fully materialized input to the report template. It is
// built from State alone plus the narrative, so rendering it twice from the
// same state yields the same report.
type ReportData struct {
	Query     string
	Filters   string
	StepsRun  []string
	DealCount int

	RetrievalRequested bool
	Deals              []ReportDeal

	ExplainRequested bool
	ModelOutputs     []ModelOutput

	NewsRequested bool
	NewsGroups    []NewsGroup

	Insights        string
	Recommendations []string
	Risks           []string
}

// Narrative is the free-text part of a report.
type Narrative struct {
	Insights        string
	Recommendations []string
}

// NarrativeProvider writes the insights and recommendations sections from a
// finished state. A deterministic provider makes the whole report
// deterministic.
type NarrativeProvider interface {
	Narrative(ctx context.Context, state *State) (Narrative, error)
}

// Aggregator assembles the final Markdown report from a finished pipeline
// state. Render is total: any run state, including one where every step
// failed, still yields a complete report with the gaps called out.
type Aggregator struct {
	narrative NarrativeProvider
	log       *logger.Logger
}

// NewAggregator creates the aggregator. narrative may be nil, in which case
// the insights and recommendations sections note their absence.
func NewAggregator(narrative NarrativeProvider) *Aggregator {
	return &Aggregator{
		narrative: narrative,
		log:       logger.Get().With("component", "aggregator"),
	}
}

// Render produces the report for state. The only error condition is a state
// that was never initialized with a query; everything else renders.
func (a *Aggregator) Render(ctx context.Context, state *State) (string, error) {
	if state == nil || strings.TrimSpace(state.Query) == "" {
		return "", errors.Wrap(errors.ErrInvalidState, "state has no query")
	}

	data := a.buildReportData(ctx, state)

	tmpl, err := templates.Get().GetTemplate(reportTemplateID)
	if err != nil {
		return "", err
	}
	report, err := tmpl.Render(data)
	if err != nil {
		return "", errors.Wrap(err, "render report")
	}
	return report, nil
}

func (a *Aggregator) buildReportData(ctx context.Context, state *State) ReportData {
	data := ReportData{
		Query:              state.Query,
		Filters:            state.Filters,
		StepsRun:           state.Selected.Names(),
		DealCount:          len(state.Deals),
		// Retrieval runs whenever any step was selected, so the deals
		// table renders even when only downstream steps were requested.
		RetrievalRequested: state.Selected.NeedsRetrieval(),
		ExplainRequested:   state.Selected.Has(StepExplain),
		NewsRequested:      state.Selected.Has(StepNews),
	}
	if state.Condition != "" {
		data.Filters = state.Condition
	}

	for _, d := range state.Deals {
		data.Deals = append(data.Deals, ReportDeal{
			Opportunity:    d.OpportunityNumber,
			Topic:          d.Topic,
			Account:        d.AccountName,
			Industry:       d.AccountIndustry,
			Type:           d.OpportunityType,
			Status:         d.Status,
			Value:          templates.Money(d.ExpectedValue),
			WinProbability: templates.Percent(d.WinProbability),
			Created:        d.CreatedOn.Format("2006-01-02"),
		})
	}

	missing := 0
	if data.ExplainRequested {
		for _, d := range state.Deals {
			id := strings.TrimSpace(d.OpportunityNumber)
			p, ok := state.Predictions[id]
			if !ok {
				missing++
				data.ModelOutputs = append(data.ModelOutputs, ModelOutput{Opportunity: id})
				continue
			}

			out := ModelOutput{
				Opportunity: id,
				Available:   true,
				Probability: templates.Percent(p.Probability),
				Summary:     p.Summary,
			}
			for i, f := range p.Factors {
				if i == topDriverCount*2 {
					break
				}
				out.Drivers = append(out.Drivers, ReportDriver{
					Name:         f.Name,
					Contribution: fmt.Sprintf("%+.3f", f.Contribution),
				})
			}
			data.ModelOutputs = append(data.ModelOutputs, out)
		}
	}

	if data.NewsRequested {
		// Group in deal order so the report is stable across runs.
		seen := make(map[string]struct{}, len(state.News))
		for _, d := range state.Deals {
			industry := d.Industry()
			if _, ok := seen[industry]; ok {
				continue
			}
			seen[industry] = struct{}{}

			snippets := state.News[industry]
			if len(snippets) == 0 {
				continue
			}
			group := NewsGroup{Industry: industry}
			for _, sn := range snippets {
				group.Items = append(group.Items, NewsItem{Title: sn.Title, Text: sn.Text, Source: sn.Source})
			}
			data.NewsGroups = append(data.NewsGroups, group)
		}
	}

	for _, e := range state.Errors {
		data.Risks = append(data.Risks, fmt.Sprintf("[%s] %s", e.Source, e.Message))
	}
	if missing > 0 {
		data.Risks = append(data.Risks, fmt.Sprintf("Model factor data missing for %d of %d deals.", missing, len(state.Deals)))
	}

	if a.narrative != nil {
		narrative, err := a.narrative.Narrative(ctx, state)
		if err != nil {
			a.log.Warnw("Narrative generation failed", "error", err)
			data.Risks = append(data.Risks, fmt.Sprintf("Narrative generation failed: %v", err))
		} else {
			data.Insights = strings.TrimSpace(narrative.Insights)
			data.Recommendations = narrative.Recommendations
		}
	}

	return data
}
