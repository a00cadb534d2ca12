package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/secscan/pkg/engine"
)

// ErrNoResponse is returned when the model produced no usable text.
var ErrNoResponse = errors.New("no response candidates")

// Provider turns a finished report into a short natural-language briefing.
type Provider interface {
	Summarize(ctx context.Context, r *engine.ScanReport) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Close()
}

func NewProvider(ctx context.Context, providerName, apiKey, modelName string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider: %s", providerName)
	}
	switch strings.ToLower(providerName) {
	case "gemini", "":
		return NewGeminiProvider(ctx, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
