package pipeline

import (
	"context"
	"sync"
	"time"

	"dealscope/internal/metrics"
	"dealscope/pkg/logger"
)

// Pipeline is the request driver. It routes the query, runs the selected
// steps (explanation and news concurrently), merges each step's output into
// the request state and renders the final report.
//
// The driver is the only writer of the live State once steps run
// concurrently: each concurrent step works against a shadow state and hands
// its output back over a channel; the merge happens here, on one goroutine.
type Pipeline struct {
	router     *IntentRouter
	retrieval  *RetrievalStep
	explain    *ExplainStep
	news       *NewsStep
	aggregator *Aggregator

	stepTimeout time.Duration
	log         *logger.Logger
}

// Config wires the pipeline's steps together.
type Config struct {
	Router     *IntentRouter
	Retrieval  *RetrievalStep
	Explain    *ExplainStep
	News       *NewsStep
	Aggregator *Aggregator

	// StepTimeout bounds each optional step; zero means no per-step bound.
	StepTimeout time.Duration
}

// New creates the pipeline driver.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		router:      cfg.Router,
		retrieval:   cfg.Retrieval,
		explain:     cfg.Explain,
		news:        cfg.News,
		aggregator:  cfg.Aggregator,
		stepTimeout: cfg.StepTimeout,
		log:         logger.Get().With("component", "pipeline"),
	}
}

// stepResult carries one concurrent step's output back to the driver.
type stepResult struct {
	step     Step
	explain  ExplainResult
	news     NewsResult
	fatal    error
	recorded []StepError
	duration time.Duration
}

// Run executes the full pipeline for query and returns the Markdown report.
// Step failures are recorded on state and surfaced in the report; the
// returned error covers only an empty query or a report that could not be
// rendered at all.
func (p *Pipeline) Run(ctx context.Context, query string) (string, error) {
	started := time.Now()
	report, err := p.run(ctx, query)
	metrics.RecordPipelineRun(time.Since(started), err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, query string) (string, error) {
	state := NewState(query)
	log := p.log.With("request_id", state.RequestID.String())
	log.Infow("Pipeline run started", "query", query)

	decision := p.router.Route(ctx, query)
	state.Filters = decision.Filters
	state.Selected = decision.Steps
	if decision.ParseError != nil {
		state.Errors = append(state.Errors, *decision.ParseError)
		metrics.StepErrors.WithLabelValues(decision.ParseError.Source).Inc()
	}

	if state.Selected.NeedsRetrieval() {
		p.runRetrieval(ctx, state, log)
	} else {
		metrics.RecordStepSkipped(StepRetrieval.Name())
	}

	p.runConcurrent(ctx, state, log)

	report, err := p.aggregator.Render(ctx, state)
	if err != nil {
		return "", err
	}

	log.Infow("Pipeline run finished",
		"deals", len(state.Deals),
		"predictions", len(state.Predictions),
		"errors", len(state.Errors),
	)
	return report, nil
}

func (p *Pipeline) runRetrieval(ctx context.Context, state *State, log *logger.Logger) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	started := time.Now()
	result, err := p.retrieval.Run(ctx, state)
	metrics.RecordStepExecution(StepRetrieval.Name(), time.Since(started), err)

	if err != nil {
		state.RecordError(StepRetrieval.Name(), err.Error())
		metrics.StepErrors.WithLabelValues(StepRetrieval.Name()).Inc()
		log.Warnw("Retrieval failed", "error", err)
		return
	}

	state.Condition = result.Condition
	state.Deals = result.Deals
	log.Infow("Retrieval finished", "deals", len(result.Deals), "condition", result.Condition)
}

// runConcurrent launches explanation and news lookup in parallel when
// selected and merges their outputs. Both read the deals slice, which is
// immutable by now; per-deal degradations land on per-goroutine shadow
// states and are merged with the outputs.
func (p *Pipeline) runConcurrent(ctx context.Context, state *State, log *logger.Logger) {
	runExplain := state.Selected.Has(StepExplain)
	runNews := state.Selected.Has(StepNews)
	if !runExplain {
		metrics.RecordStepSkipped(StepExplain.Name())
	}
	if !runNews {
		metrics.RecordStepSkipped(StepNews.Name())
	}
	if !runExplain && !runNews {
		return
	}

	var wg sync.WaitGroup
	results := make(chan stepResult, 2)

	if runExplain {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stepCtx, cancel := p.stepContext(ctx)
			defer cancel()

			started := time.Now()
			shadow := &State{Filters: state.Filters, Deals: state.Deals}
			result, err := p.explain.Run(stepCtx, shadow)
			results <- stepResult{
				step:     StepExplain,
				explain:  result,
				fatal:    err,
				recorded: shadow.Errors,
				duration: time.Since(started),
			}
		}()
	}

	if runNews {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stepCtx, cancel := p.stepContext(ctx)
			defer cancel()

			started := time.Now()
			shadow := &State{Filters: state.Filters, Deals: state.Deals}
			result := p.news.Run(stepCtx, shadow)
			results <- stepResult{
				step:     StepNews,
				news:     result,
				recorded: shadow.Errors,
				duration: time.Since(started),
			}
		}()
	}

	wg.Wait()
	close(results)

	for r := range results {
		metrics.RecordStepExecution(r.step.Name(), r.duration, r.fatal)

		for _, se := range r.recorded {
			state.RecordError(se.Source, se.Message)
			metrics.StepErrors.WithLabelValues(se.Source).Inc()
		}
		if r.fatal != nil {
			state.RecordError(r.step.Name(), r.fatal.Error())
			metrics.StepErrors.WithLabelValues(r.step.Name()).Inc()
			log.Warnw("Step failed", "step", r.step.Name(), "error", r.fatal)
			continue
		}

		switch r.step {
		case StepExplain:
			state.Predictions = r.explain.Predictions
		case StepNews:
			state.News = r.news.News
		}
	}
}

func (p *Pipeline) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.stepTimeout)
}
