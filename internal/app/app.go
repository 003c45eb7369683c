// Package app wires configuration into the running analysis stack. Both the
// HTTP server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/extraction"
	"resumeanalyzer/internal/llm"
	"resumeanalyzer/internal/llm/claude"
	"resumeanalyzer/internal/llm/gemini"
	"resumeanalyzer/internal/llm/openai"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
	"resumeanalyzer/internal/prompt"
	"resumeanalyzer/internal/repository"
	"resumeanalyzer/internal/repository/postgres"
	"resumeanalyzer/internal/repository/sqlite"
	"resumeanalyzer/internal/service"
	s3storage "resumeanalyzer/internal/storage/s3"
	"resumeanalyzer/internal/validator"
)

// App holds the assembled services. Optional collaborators are nil when
// disabled in configuration.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Analysis service.AnalysisService
	Tokens   service.TokenService
	Audit    port.AuditRepository
	Archive  port.DocumentArchive

	emitter *service.AuditEmitter
	closers []func() error
}

// New builds the full stack from cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{Config: cfg, Log: log}

	generator, err := NewTextGenerator(ctx, cfg.LLM, log)
	if err != nil {
		return nil, err
	}

	audit, closeAudit, err := OpenAuditRepository(cfg)
	if err != nil {
		return nil, err
	}
	if closeAudit != nil {
		a.closers = append(a.closers, closeAudit)
		a.Audit = audit
	}

	if cfg.Archive.Enabled {
		bucket, err := s3storage.NewBucket(ctx, &cfg.Archive)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("failed to initialize archive storage: %w", err)
		}
		a.Archive = s3storage.NewArchive(bucket, cfg.Archive.PresignExpiry)
	}

	if cfg.Auth.Enabled {
		a.Tokens = service.NewTokenService(cfg.Auth)
	}

	responses, err := validator.New()
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("failed to compile response schemas: %w", err)
	}

	evaluator := service.NewEvaluationService(
		prompt.NewEngine(cfg.Extraction.MaxTextChars),
		generator,
		responses,
		cfg.LLM,
		log.Named("evaluation"),
	)

	a.emitter = service.NewAuditEmitter(a.Audit, cfg.Audit.QueueSize, log.Named("audit"))
	a.emitter.Start()

	a.Analysis = service.NewAnalysisService(
		NewExtractor(cfg.Extraction, log.Named("extraction")),
		evaluator,
		a.Archive,
		a.emitter,
		service.AnalysisConfig{
			ExtractionConcurrency: cfg.Extraction.Concurrency,
			MaxFiles:              cfg.Server.MaxFiles,
		},
		log.Named("analysis"),
	)

	log.Info("analysis stack ready",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("audit_driver", cfg.Audit.Driver),
		zap.Bool("archive", cfg.Archive.Enabled),
		zap.Bool("auth", cfg.Auth.Enabled),
	)
	return a, nil
}

// Close drains pending audit entries and releases database handles.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.emitter != nil {
		if err := a.emitter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draining audit queue: %w", err))
		}
		if dropped := a.emitter.Dropped(); dropped > 0 {
			a.Log.Warn("audit entries dropped", zap.Int64("count", dropped))
		}
	}
	errs = append(errs, a.closeAll())
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewTextGenerator returns the configured model client: the primary
// provider followed by any fallbacks, paced by the configured request rate.
func NewTextGenerator(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (port.TextGenerator, error) {
	log = logger.OrNop(log)

	primary, err := newProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	chain := []port.TextGenerator{primary}
	for _, p := range cfg.Fallbacks() {
		g, err := newProvider(ctx, cfg.WithProvider(p), log)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
		chain = append(chain, g)
	}

	return llm.NewLimited(llm.NewFallback(log.Named("fallback"), chain...), cfg.RequestsPerSecond, cfg.Burst), nil
}

func newProvider(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (port.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderGemini:
		g, err := gemini.NewGenerator(ctx, cfg, log.Named("gemini"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		return g, nil
	case config.ProviderClaude:
		g, err := claude.NewGenerator(cfg, log.Named("claude"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize claude client: %w", err)
		}
		return g, nil
	case config.ProviderOpenAI:
		g, err := openai.NewGenerator(cfg, log.Named("openai"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// NewExtractor assembles the native-then-OCR extraction pipeline.
func NewExtractor(cfg config.ExtractionConfig, log *zap.Logger) port.TextExtractor {
	log = logger.OrNop(log)
	runner := extraction.NewExecRunner(log)
	return extraction.NewPipeline(
		cfg,
		extraction.NewPDFTextReader(),
		extraction.NewPopplerRasterizer(runner, cfg.PdftoppmPath, cfg.MaxPages, log),
		extraction.NewTesseractRecognizer(runner, cfg.TesseractPath, cfg.TessdataDir),
		log,
	)
}

// OpenAuditRepository opens the configured audit store. With the "none"
// driver it returns a nil repository and a nil closer.
func OpenAuditRepository(cfg *config.Config) (port.AuditRepository, func() error, error) {
	switch cfg.Audit.Driver {
	case config.AuditDriverPostgres:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewAnalysisLogRepo(db), db.Close, nil
	case config.AuditDriverSQLite:
		db, err := sqlite.Open(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite audit store: %w", err)
		}
		return repository.NewAnalysisLogRepo(db), db.Close, nil
	case "", config.AuditDriverNone:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit driver %q", cfg.Audit.Driver)
	}
}
