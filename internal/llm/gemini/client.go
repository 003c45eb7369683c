// Package gemini implements port.TextGenerator on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/llm"
	"resumeanalyzer/internal/logger"
)

const defaultModel = "gemini-2.5-flash"

// modelCaller is the subset of genai.Models used here.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends single-turn prompts to Gemini and returns the text reply.
type Generator struct {
	models    modelCaller
	modelName string
	genConfig *genai.GenerateContentConfig
	log       *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
// A non-empty cfg.Endpoint replaces the public API base URL.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, log), nil
}

func newGenerator(models modelCaller, cfg config.LLMConfig, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(cfg.Temperature),
	}
	if cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = cfg.MaxOutputTokens
	}

	return &Generator{
		models:    models,
		modelName: model,
		genConfig: genConfig,
		log:       logger.OrNop(log),
	}
}

// Generate sends prompt and returns the concatenated text parts of the
// reply. Errors are classified into LLMErrors.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), g.genConfig)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return "", ctx.Err()
		}
		return "", llm.Classify(fmt.Errorf("generate content: %w", err))
	}

	output := responseText(resp)
	if output == "" {
		g.log.Warn("gemini returned no text", zap.String("model", g.modelName), zap.String("finish_reason", finishReason(resp)))
		return "", llm.Classify(llm.ErrEmptyResponse)
	}

	g.log.Debug("gemini response",
		zap.String("model", g.modelName),
		zap.Int("prompt_chars", len(prompt)),
		zap.String("response", logger.TruncateForLog(output, 500)),
	)
	return output, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// Only the first candidate with content is used.
		if builder.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(builder.String())
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return string(resp.Candidates[0].FinishReason)
}
