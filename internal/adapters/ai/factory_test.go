package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscope/internal/adapters/config"
	"dealscope/pkg/errors"
)

func TestBuildProvider(t *testing.T) {
	provider, err := BuildProvider(config.AIConfig{
		APIKey:       "sk-test",
		Model:        "gpt-4o-mini",
		Timeout:      30 * time.Second,
		ReqPerMinute: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestBuildProviderRequiresCredentials(t *testing.T) {
	_, err := BuildProvider(config.AIConfig{APIKey: "  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}
