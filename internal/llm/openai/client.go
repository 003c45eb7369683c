// Package openai implements port.TextGenerator over the OpenAI Chat
// Completions API and compatible servers.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/llm"
	"resumeanalyzer/internal/logger"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-4o"
	provider     = "openai"
)

// Generator sends single-turn prompts to a chat completions endpoint in JSON mode.
type Generator struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int32
	temp      float32
	client    *http.Client
	log       *zap.Logger
}

// NewGenerator creates an OpenAI generator from cfg. cfg.Endpoint points it
// at a compatible server instead of the public API; such servers may not
// need a key.
func NewGenerator(cfg config.LLMConfig, log *zap.Logger) (*Generator, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai api key is required")
		}
		endpoint = apiURL
	}
	return newGenerator(cfg, endpoint, &http.Client{}, log), nil
}

func newGenerator(cfg config.LLMConfig, endpoint string, client *http.Client, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Generator{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		model:     model,
		endpoint:  endpoint,
		maxTokens: cfg.MaxOutputTokens,
		temp:      cfg.Temperature,
		client:    client,
		log:       logger.OrNop(log),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	Temperature         float32        `json:"temperature"`
	MaxCompletionTokens int32          `json:"max_completion_tokens,omitempty"`
	ResponseFormat      responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends prompt and returns the first choice's content.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	bodyBytes, err := json.Marshal(chatRequest{
		Model:               g.model,
		Messages:            []chatMessage{{Role: "user", Content: prompt}},
		Temperature:         g.temp,
		MaxCompletionTokens: g.maxTokens,
		ResponseFormat:      responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return "", ctx.Err()
		}
		return "", llm.Classify(fmt.Errorf("calling openai API: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Classify(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", llm.Classify(llm.NewStatusError(provider, resp, respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", llm.Classify(fmt.Errorf("%w: undecodable envelope: %v", llm.ErrEmptyResponse, err))
	}
	if len(parsed.Choices) == 0 {
		return "", llm.Classify(llm.ErrEmptyResponse)
	}
	choice := parsed.Choices[0]
	if choice.FinishReason == "length" {
		return "", llm.Classify(llm.ErrTruncated)
	}
	output := strings.TrimSpace(choice.Message.Content)
	if output == "" {
		return "", llm.Classify(llm.ErrEmptyResponse)
	}

	g.log.Debug("openai response",
		zap.String("model", g.model),
		zap.Int("prompt_chars", len(prompt)),
		zap.String("response", logger.TruncateForLog(output, 500)),
	)
	return output, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}
