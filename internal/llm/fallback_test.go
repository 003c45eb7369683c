package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/llm"
	"resumeanalyzer/mocks"
)

func rateLimited(after time.Duration) error {
	e := domain.NewLLMError(domain.LLMRateLimited, errors.New("429"))
	e.RetryAfter = after
	return e
}

func TestNewFallback_SingleIsUnwrapped(t *testing.T) {
	only := new(mocks.MockTextGenerator)
	assert.Same(t, only, llm.NewFallback(nil, only))
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("{}", nil)

	out, err := llm.NewFallback(nil, primary, secondary).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	secondary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallback_FallsThroughOnRetryableFailure(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("", domain.NewLLMError(domain.LLMNetworkError, errors.New("502")))
	secondary.On("Generate", mock.Anything, "p").Return(`{"ok":1}`, nil)

	out, err := llm.NewFallback(nil, primary, secondary).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, out)
}

func TestFallback_ServiceErrorReturnedImmediately(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("", domain.NewLLMError(domain.LLMServiceError, errors.New("bad key")))

	out, err := llm.NewFallback(nil, primary, secondary).Generate(context.Background(), "p")
	assert.Empty(t, out)
	code, ok := domain.LLMCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LLMServiceError, code)
	secondary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallback_RateLimitOpensCircuit(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("", rateLimited(time.Minute)).Once()
	secondary.On("Generate", mock.Anything, "p").Return("{}", nil).Twice()

	g := llm.NewFallback(nil, primary, secondary)
	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
	// The second call skipped the primary while its circuit was open.
	primary.AssertNumberOfCalls(t, "Generate", 1)
	secondary.AssertNumberOfCalls(t, "Generate", 2)
}

func TestFallback_AllRateLimited(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("", rateLimited(time.Minute)).Once()
	secondary.On("Generate", mock.Anything, "p").Return("", rateLimited(10*time.Second)).Once()

	g := llm.NewFallback(nil, primary, secondary)
	_, err := g.Generate(context.Background(), "p")

	var llmErr *domain.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, domain.LLMRateLimited, llmErr.Code)
	assert.InDelta(t, (10 * time.Second).Seconds(), llmErr.RetryAfter.Seconds(), 1)

	// Both circuits are open now, so nothing is called.
	_, err = g.Generate(context.Background(), "p")
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, domain.LLMRateLimited, llmErr.Code)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestFallback_LastErrorWhenMixed(t *testing.T) {
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").Return("", rateLimited(time.Minute))
	secondary.On("Generate", mock.Anything, "p").Return("", domain.NewLLMError(domain.LLMTimeout, nil))

	_, err := llm.NewFallback(nil, primary, secondary).Generate(context.Background(), "p")
	code, ok := domain.LLMCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LLMTimeout, code)
}

func TestFallback_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary, secondary := new(mocks.MockTextGenerator), new(mocks.MockTextGenerator)
	primary.On("Generate", mock.Anything, "p").
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	_, err := llm.NewFallback(nil, primary, secondary).Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	secondary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallback_ModelIsPrimary(t *testing.T) {
	g := llm.NewFallback(nil, new(mocks.MockTextGenerator), new(mocks.MockTextGenerator))
	assert.Equal(t, "mock-model", g.Model())
}
