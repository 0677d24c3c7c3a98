package ai

import (
	"strings"

	"dealscope/internal/adapters/config"
	"dealscope/pkg/errors"
)

// BuildProvider constructs the chat provider described by the configuration.
// The pipeline only sees the ChatProvider interface, so swapping the backing
// service is a config change, not a code change.
func BuildProvider(cfg config.AIConfig) (ChatProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI provider credentials configured")
	}

	return NewOpenAIProvider(OpenAIConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Timeout:      cfg.Timeout,
		ReqPerMinute: cfg.ReqPerMinute,
	})
}
