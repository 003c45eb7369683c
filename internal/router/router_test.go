package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/handler"
	"resumeanalyzer/internal/router"
	"resumeanalyzer/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(tokens *mocks.MockTokenService) *gin.Engine {
	analysisH := handler.NewAnalysisHandler(new(mocks.MockAnalysisService), 10, nil)
	logsH := handler.NewLogsHandler(nil, nil, nil)
	healthH := handler.NewHealthHandler(nil)
	if tokens == nil {
		return router.Setup(zap.NewNop(), nil, nil, analysisH, logsH, healthH)
	}
	return router.Setup(zap.NewNop(), nil, tokens, analysisH, logsH, healthH)
}

func TestSetup_HealthIsPublic(t *testing.T) {
	r := newEngine(new(mocks.MockTokenService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSetup_APIRequiresToken(t *testing.T) {
	tokens := new(mocks.MockTokenService)
	tokens.On("ValidateToken", "nope").Return(nil, domain.ErrUnauthorized)
	r := newEngine(tokens)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/logs", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/logs", http.NoBody)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetup_AuthDisabled(t *testing.T) {
	r := newEngine(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/logs", http.NoBody)
	r.ServeHTTP(w, req)

	// Reaches the handler, which reports that auditing is off.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
