package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/prompt"
	"resumeanalyzer/internal/service"
	"resumeanalyzer/internal/validator"
	"resumeanalyzer/mocks"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		CallTimeout: time.Second,
		MaxAttempts: 3,
		Backoff:     config.BackoffFixed,
		BackoffBase: time.Second,
		MaxInFlight: 4,
	}
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func noSleep(t *testing.T) *sleepRecorder {
	t.Helper()
	rec := &sleepRecorder{}
	t.Cleanup(service.SetSleep(rec.sleep))
	return rec
}

func newEvaluator(t *testing.T, gen *mocks.MockTextGenerator, cfg config.LLMConfig) service.EvaluationService {
	t.Helper()
	v, err := validator.New()
	require.NoError(t, err)
	return service.NewEvaluationService(prompt.NewEngine(15000), gen, v, cfg, nil)
}

func rankingRequest() domain.EvaluationRequest {
	return domain.EvaluationRequest{
		Text:     "Go developer with seven years of backend experience",
		Mode:     domain.ModeRanking,
		Query:    "Python developer",
		Filename: "jane.pdf",
	}
}

func TestEvaluationService_Evaluate_Ranking(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Python developer") && strings.Contains(p, "seven years")
	})).Return(`{"score": 87, "justification": "Strong match"}`, nil).Once()

	svc := newEvaluator(t, gen, testLLMConfig())
	res, err := svc.Evaluate(context.Background(), rankingRequest())

	require.NoError(t, err)
	require.NotNil(t, res.Ranking)
	assert.Equal(t, 87.0, res.Ranking.Score)
	assert.Equal(t, "Strong match", res.Ranking.Justification)
	assert.Equal(t, "jane.pdf", res.Ranking.Filename)
	gen.AssertExpectations(t)
}

func TestEvaluationService_Evaluate_Summary(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(
		"```json\n{\"name\":\"Jane\",\"title\":\"Engineer\",\"technologies\":[\"Go\"],\"experiences\":[],\"education\":[],\"summary\":\"Backend engineer.\"}\n```", nil).Once()

	svc := newEvaluator(t, gen, testLLMConfig())
	res, err := svc.Evaluate(context.Background(), domain.EvaluationRequest{Text: "resume", Mode: domain.ModeSummary, Filename: "jane.pdf"})

	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "Jane", res.Summary.Name)
	assert.Equal(t, []string{"Go"}, res.Summary.Technologies)
}

func TestEvaluationService_Evaluate_RetryBoundMalformedJSON(t *testing.T) {
	rec := noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("I think this candidate is great", nil)

	cfg := testLLMConfig()
	svc := newEvaluator(t, gen, cfg)
	res, err := svc.Evaluate(context.Background(), rankingRequest())

	assert.Nil(t, res)
	code, ok := domain.LLMCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LLMMalformedJSON, code)
	gen.AssertNumberOfCalls(t, "Generate", cfg.MaxAttempts)
	assert.Len(t, rec.waits, cfg.MaxAttempts-1)
}

func TestEvaluationService_Evaluate_RepairPromptAfterSchemaViolation(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{"score": 150, "justification": "Too high"}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{"score": 90, "justification": "Fixed"}`, nil).Once()

	svc := newEvaluator(t, gen, testLLMConfig())
	res, err := svc.Evaluate(context.Background(), rankingRequest())

	require.NoError(t, err)
	assert.Equal(t, 90.0, res.Ranking.Score)

	require.Len(t, gen.Calls, 2)
	first := gen.Calls[0].Arguments.String(1)
	second := gen.Calls[1].Arguments.String(1)
	assert.NotContains(t, first, "SCHEMA_VIOLATION")
	assert.True(t, strings.HasPrefix(second, first))
	assert.Contains(t, second, "SCHEMA_VIOLATION")
}

func TestEvaluationService_Evaluate_SchemaViolationExhausted(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{"score": 150, "justification": "x"}`, nil)

	cfg := testLLMConfig()
	cfg.MaxAttempts = 2
	svc := newEvaluator(t, gen, cfg)
	_, err := svc.Evaluate(context.Background(), rankingRequest())

	code, _ := domain.LLMCodeOf(err)
	assert.Equal(t, domain.LLMSchemaViolation, code)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestEvaluationService_Evaluate_ServiceErrorNotRetried(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", domain.NewLLMError(domain.LLMServiceError, errors.New("API key not valid")))

	svc := newEvaluator(t, gen, testLLMConfig())
	_, err := svc.Evaluate(context.Background(), rankingRequest())

	code, _ := domain.LLMCodeOf(err)
	assert.Equal(t, domain.LLMServiceError, code)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestEvaluationService_Evaluate_TransientErrorRetriedWithOriginalPrompt(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", domain.NewLLMError(domain.LLMNetworkError, errors.New("connection reset"))).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"score": 10, "justification": "Weak"}`, nil).Once()

	svc := newEvaluator(t, gen, testLLMConfig())
	res, err := svc.Evaluate(context.Background(), rankingRequest())

	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Ranking.Score)
	require.Len(t, gen.Calls, 2)
	assert.Equal(t, gen.Calls[0].Arguments.String(1), gen.Calls[1].Arguments.String(1))
}

func TestEvaluationService_Evaluate_CallTimeoutIsRetryable(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"score": 55, "justification": "Average"}`, nil).Once()

	cfg := testLLMConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	svc := newEvaluator(t, gen, cfg)
	res, err := svc.Evaluate(context.Background(), rankingRequest())

	require.NoError(t, err)
	assert.Equal(t, 55.0, res.Ranking.Score)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestEvaluationService_Evaluate_CallTimeoutExhausted(t *testing.T) {
	noSleep(t)
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	cfg := testLLMConfig()
	cfg.CallTimeout = 5 * time.Millisecond
	cfg.MaxAttempts = 2
	svc := newEvaluator(t, gen, cfg)
	_, err := svc.Evaluate(context.Background(), rankingRequest())

	code, _ := domain.LLMCodeOf(err)
	assert.Equal(t, domain.LLMTimeout, code)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestEvaluationService_Evaluate_ParentCancelStops(t *testing.T) {
	noSleep(t)
	ctx, cancel := context.WithCancel(context.Background())
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	svc := newEvaluator(t, gen, testLLMConfig())
	_, err := svc.Evaluate(ctx, rankingRequest())

	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestEvaluationService_Evaluate_ModeMismatch(t *testing.T) {
	gen := new(mocks.MockTextGenerator)
	svc := newEvaluator(t, gen, testLLMConfig())

	req := rankingRequest()
	req.Query = ""
	_, err := svc.Evaluate(context.Background(), req)

	require.Error(t, err)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestEvaluationService_Backoff(t *testing.T) {
	tests := []struct {
		name    string
		backoff string
		errs    []error
		want    []time.Duration
	}{
		{
			name:    "fixed",
			backoff: config.BackoffFixed,
			errs:    []error{domain.NewLLMError(domain.LLMNetworkError, nil), domain.NewLLMError(domain.LLMNetworkError, nil)},
			want:    []time.Duration{time.Second, time.Second},
		},
		{
			name:    "exponential",
			backoff: config.BackoffExponential,
			errs:    []error{domain.NewLLMError(domain.LLMNetworkError, nil), domain.NewLLMError(domain.LLMNetworkError, nil)},
			want:    []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:    "retry after hint",
			backoff: config.BackoffFixed,
			errs: []error{
				&domain.LLMError{Code: domain.LLMRateLimited, RetryAfter: 7 * time.Second},
				&domain.LLMError{Code: domain.LLMRateLimited, RetryAfter: time.Minute},
			},
			want: []time.Duration{7 * time.Second, 30 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := noSleep(t)
			gen := new(mocks.MockTextGenerator)
			for _, e := range tt.errs {
				gen.On("Generate", mock.Anything, mock.Anything).Return("", e).Once()
			}
			gen.On("Generate", mock.Anything, mock.Anything).Return(`{"score": 1, "justification": "ok"}`, nil).Once()

			cfg := testLLMConfig()
			cfg.Backoff = tt.backoff
			svc := newEvaluator(t, gen, cfg)
			_, err := svc.Evaluate(context.Background(), rankingRequest())

			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.waits)
		})
	}
}

func TestEvaluationService_MaxInFlight(t *testing.T) {
	noSleep(t)
	var inFlight, peak atomic.Int32
	gen := new(mocks.MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}).
		Return(`{"score": 50, "justification": "ok"}`, nil)

	cfg := testLLMConfig()
	cfg.MaxInFlight = 2
	svc := newEvaluator(t, gen, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Evaluate(context.Background(), rankingRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	gen.AssertNumberOfCalls(t, "Generate", 8)
}
