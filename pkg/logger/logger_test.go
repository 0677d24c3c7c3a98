package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWarnwKeepsStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.Warnw("retrieval failed", "error", "connection refused", "deals", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "retrieval failed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "connection refused", fields["error"])
	require.EqualValues(t, 3, fields["deals"])
}

func TestWithPropagatesFieldsToChild(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("component", "intent_router").Infow("routing decided", "steps", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "intent_router", fields["component"])
	require.EqualValues(t, 2, fields["steps"])
}
