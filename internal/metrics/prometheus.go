package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: success|error
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealscope_pipeline_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	StepExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_step_executions_total",
			Help: "Total number of pipeline step executions",
		},
		[]string{"step", "status"}, // status: success|error|skipped
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealscope_step_duration_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"step"},
	)

	StepErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_step_errors_total",
			Help: "Total recoverable errors recorded on pipeline state",
		},
		[]string{"source"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_llm_calls_total",
			Help: "Total number of LLM chat completions",
		},
		[]string{"provider", "model", "status"}, // status: success|error|rate_limited
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealscope_llm_latency_seconds",
			Help:    "LLM chat completion latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_llm_tokens_total",
			Help: "Total tokens used by LLM calls",
		},
		[]string{"provider", "model", "type"}, // type: input|output
	)

	// News metrics
	NewsLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_news_lookups_total",
			Help: "Total news search requests",
		},
		[]string{"status"}, // status: success|error|cache_hit
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscope_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealscope_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(StepExecutions)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(StepErrors)

	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(LLMTokens)

	prometheus.MustRegister(NewsLookups)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)
}

// Register adds a custom collector to the default registry
func Register(c prometheus.Collector) error {
	return prometheus.Register(c)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPipelineRun records a finished pipeline run
func RecordPipelineRun(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	PipelineRuns.WithLabelValues(status).Inc()
	PipelineDuration.Observe(duration.Seconds())
}

// RecordStepExecution records one pipeline step execution
func RecordStepExecution(step string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	StepExecutions.WithLabelValues(step, status).Inc()
	StepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordStepSkipped records a step the router left out of the run.
func RecordStepSkipped(step string) {
	StepExecutions.WithLabelValues(step, "skipped").Inc()
}

// RecordDBQuery records one database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordLLMCall records an LLM chat completion
func RecordLLMCall(provider, model string, latency time.Duration, inputTokens, outputTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	LLMCalls.WithLabelValues(provider, model, status).Inc()
	LLMLatency.WithLabelValues(provider, model).Observe(latency.Seconds())

	if inputTokens > 0 {
		LLMTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}
