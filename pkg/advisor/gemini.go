package advisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/user/secscan/pkg/engine"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, apiKey string, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiProvider{client: client, model: model}, nil
}

// ListModels returns the sorted IDs of models that can serve Summarize.
func (g *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	it := g.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gemini models: %w", err)
		}
		if id, ok := summaryModelID(info); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// summaryModelID reports the short ID of a model that supports
// generateContent.
func summaryModelID(info *genai.ModelInfo) (string, bool) {
	if info == nil || !slices.Contains(info.SupportedGenerationMethods, "generateContent") {
		return "", false
	}
	id := strings.TrimPrefix(info.Name, "models/")
	return id, id != ""
}

func (g *GeminiProvider) Summarize(ctx context.Context, r *engine.ScanReport) (string, error) {
	prompt, err := BuildPrompt(r)
	if err != nil {
		return "", err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", ErrNoResponse
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrNoResponse
	}
	return out, nil
}
