package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   []fakeCall
	resp    *genai.GenerateContentResponse
	err     error
	blockOn context.Context
}

type fakeCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt, config: cfg})
	f.mu.Unlock()

	if f.blockOn != nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{Model: "gemini-test", Temperature: 0.2, MaxOutputTokens: 1024}
}

func TestGenerator_Generate(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"score": 80,`, ` "justification": "ok"}`)}
	g := newGenerator(models, testConfig(), zap.NewNop())

	out, err := g.Generate(context.Background(), "  rank this  ")
	require.NoError(t, err)
	assert.Equal(t, "{\"score\": 80,\n\"justification\": \"ok\"}", out)

	require.Len(t, models.calls, 1)
	call := models.calls[0]
	assert.Equal(t, "gemini-test", call.model)
	assert.Equal(t, "rank this", call.prompt)
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	assert.Equal(t, int32(1024), call.config.MaxOutputTokens)
	require.NotNil(t, call.config.Temperature)
	assert.InDelta(t, 0.2, *call.config.Temperature, 1e-6)
}

func TestGenerator_SkipsThoughtParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: `{"a":1}`},
		}},
	}}}
	g := newGenerator(&fakeModels{resp: resp}, testConfig(), nil)

	out, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestGenerator_DefaultModel(t *testing.T) {
	g := newGenerator(&fakeModels{}, config.LLMConfig{}, nil)
	assert.Equal(t, defaultModel, g.Model())
}

func TestGenerator_EmptyResponseIsMalformed(t *testing.T) {
	g := newGenerator(&fakeModels{resp: &genai.GenerateContentResponse{}}, testConfig(), nil)

	_, err := g.Generate(context.Background(), "p")
	code, ok := domain.LLMCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LLMMalformedJSON, code)
}

func TestGenerator_ClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		status int
		want   domain.LLMCode
	}{
		{http.StatusTooManyRequests, domain.LLMRateLimited},
		{http.StatusInternalServerError, domain.LLMNetworkError},
		{http.StatusBadRequest, domain.LLMServiceError},
	}
	for _, tt := range tests {
		g := newGenerator(&fakeModels{err: genai.APIError{Code: tt.status}}, testConfig(), nil)
		_, err := g.Generate(context.Background(), "p")
		code, ok := domain.LLMCodeOf(err)
		require.True(t, ok, "status %d", tt.status)
		assert.Equal(t, tt.want, code, "status %d", tt.status)
	}
}

func TestGenerator_DeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	g := newGenerator(&fakeModels{blockOn: ctx}, testConfig(), nil)

	_, err := g.Generate(ctx, "p")
	code, ok := domain.LLMCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LLMTimeout, code)
}

func TestGenerator_CancelIsNotClassified(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newGenerator(&fakeModels{blockOn: ctx}, testConfig(), nil)

	_, err := g.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := domain.LLMCodeOf(err)
	assert.False(t, ok)
}

func TestGenerator_EmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	g := newGenerator(models, testConfig(), nil)

	_, err := g.Generate(context.Background(), "   ")
	require.Error(t, err)
	assert.Empty(t, models.calls)
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), config.LLMConfig{APIKey: " "}, nil)
	require.Error(t, err)
}

func TestNewGenerator_UsesConfiguredEndpoint(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\": 70}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.APIKey = "test-key"
	cfg.Endpoint = srv.URL + "/"

	g, err := NewGenerator(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), "rank this")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 70}`, out)
	assert.True(t, strings.HasSuffix(gotPath, "/models/gemini-test:generateContent"), gotPath)
	assert.Contains(t, gotBody, "rank this")
}
