package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resumeanalyzer/internal/handler"
	"resumeanalyzer/internal/middleware"
	"resumeanalyzer/internal/service"
)

// Setup configures the Gin engine with all routes and middleware. A nil
// tokens service leaves the API routes unauthenticated.
func Setup(
	log *zap.Logger,
	corsOrigins []string,
	tokens service.TokenService,
	analysisH *handler.AnalysisHandler,
	logsH *handler.LogsHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	if tokens != nil {
		v1.Use(middleware.AuthMiddleware(tokens))
	}

	v1.POST("/analyze", analysisH.Analyze)
	v1.GET("/logs", logsH.List)

	return r
}
