package widgets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mosaicboard/mosaic/pkg/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiRenderer synthesizes widget markup with Google's Gemini API.
type GeminiRenderer struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewGeminiRenderer creates a Gemini-backed renderer.
func NewGeminiRenderer(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiRenderer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if log == nil {
		log = logger.NewDefault("gemini-renderer")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiRenderer{client: client, model: model, log: log}, nil
}

func (r *GeminiRenderer) Render(ctx context.Context, data json.RawMessage, prompt, previousMarkup string) (string, error) {
	instruction := buildInstruction(data, prompt, previousMarkup)

	result, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(instruction), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned no content")
	}

	markup := extractMarkup(text)
	if markup == "" {
		return "", fmt.Errorf("no markup found in gemini response")
	}
	r.log.WithField("model", r.model).Debug("gemini render completed")
	return markup, nil
}
