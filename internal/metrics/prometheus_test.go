package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"dealscope/pkg/errors"
)

func TestRecordStepExecutionStatuses(t *testing.T) {
	before := testutil.ToFloat64(StepExecutions.WithLabelValues("retrieval", "success"))
	RecordStepExecution("retrieval", 10*time.Millisecond, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(StepExecutions.WithLabelValues("retrieval", "success")))

	before = testutil.ToFloat64(StepExecutions.WithLabelValues("retrieval", "error"))
	RecordStepExecution("retrieval", 10*time.Millisecond, errors.ErrUnavailable)
	assert.Equal(t, before+1, testutil.ToFloat64(StepExecutions.WithLabelValues("retrieval", "error")))
}

func TestRecordStepSkipped(t *testing.T) {
	before := testutil.ToFloat64(StepExecutions.WithLabelValues("industry news", "skipped"))
	RecordStepSkipped("industry news")
	assert.Equal(t, before+1, testutil.ToFloat64(StepExecutions.WithLabelValues("industry news", "skipped")))
}
