// Package claude implements port.TextGenerator over the Anthropic Messages API.
package claude

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
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
	provider     = "anthropic"
)

// Generator sends single-turn prompts to Claude.
type Generator struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int32
	temp      float32
	client    *http.Client
	log       *zap.Logger
}

// NewGenerator creates a Claude generator from cfg. cfg.Endpoint overrides
// the public API URL.
func NewGenerator(cfg config.LLMConfig, log *zap.Logger) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newGenerator(cfg, endpoint, &http.Client{}, log), nil
}

func newGenerator(cfg config.LLMConfig, endpoint string, client *http.Client, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Generator{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		model:     model,
		endpoint:  endpoint,
		maxTokens: maxTokens,
		temp:      cfg.Temperature,
		client:    client,
		log:       logger.OrNop(log),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int32     `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate sends prompt and returns the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	bodyBytes, err := json.Marshal(apiRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temp,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return "", ctx.Err()
		}
		return "", llm.Classify(fmt.Errorf("calling anthropic API: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Classify(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", llm.Classify(llm.NewStatusError(provider, resp, respBody))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", llm.Classify(fmt.Errorf("%w: undecodable envelope: %v", llm.ErrEmptyResponse, err))
	}
	if parsed.StopReason == "max_tokens" {
		return "", llm.Classify(llm.ErrTruncated)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
	}
	output := strings.TrimSpace(sb.String())
	if output == "" {
		return "", llm.Classify(llm.ErrEmptyResponse)
	}

	g.log.Debug("claude response",
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
