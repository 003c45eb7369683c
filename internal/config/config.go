package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Extraction ExtractionConfig
	LLM        LLMConfig
	Audit      AuditConfig
	DB         DBConfig
	Archive    ArchiveConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
	MaxFiles     int           `mapstructure:"max_files"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractionConfig holds the text extraction tunables.
type ExtractionConfig struct {
	// QualityThreshold is the minimum ratio of usable native pages needed to skip OCR.
	QualityThreshold float64  `mapstructure:"quality_threshold"`
	MinPageChars     int      `mapstructure:"min_page_chars"`
	OCRLanguages     []string `mapstructure:"ocr_languages"`
	DPI              int      `mapstructure:"dpi"`
	MaxPages         int      `mapstructure:"max_pages"`
	PdftoppmPath     string   `mapstructure:"pdftoppm_path"`
	TesseractPath    string   `mapstructure:"tesseract_path"`
	TessdataDir      string   `mapstructure:"tessdata_dir"`
	Concurrency      int      `mapstructure:"concurrency"`
	MaxTextChars     int      `mapstructure:"max_text_chars"`
}

// LLMConfig holds generative model settings and the evaluation retry policy.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Endpoint          string        `mapstructure:"endpoint"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxOutputTokens   int32         `mapstructure:"max_output_tokens"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Backoff           string        `mapstructure:"backoff"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	MaxInFlight       int           `mapstructure:"max_in_flight"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`

	// Secondary and Tertiary are tried in order when the providers before
	// them fail. An empty Provider disables the slot.
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// ProviderConfig holds settings for one fallback model provider.
type ProviderConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"`
}

// Fallbacks returns the configured fallback providers, in order.
func (l LLMConfig) Fallbacks() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range []ProviderConfig{l.Secondary, l.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// WithProvider returns a copy of l that talks to p, keeping the shared
// generation settings.
func (l LLMConfig) WithProvider(p ProviderConfig) LLMConfig {
	l.Provider = p.Provider
	l.APIKey = p.APIKey
	l.Model = p.Model
	l.Endpoint = p.Endpoint
	l.Secondary = ProviderConfig{}
	l.Tertiary = ProviderConfig{}
	return l
}

// AuditConfig selects where LogEntries are written.
type AuditConfig struct {
	Driver     string `mapstructure:"driver"`
	QueueSize  int    `mapstructure:"queue_size"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// ArchiveConfig holds S3 settings for archiving uploaded résumés.
type ArchiveConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

const (
	AuditDriverNone     = "none"
	AuditDriverPostgres = "postgres"
	AuditDriverSQLite   = "sqlite"

	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"

	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Load reads configuration from environment variables with the RESUME_ prefix
// and, when RESUME_CONFIG_FILE is set, from that file.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("RESUME_CONFIG_FILE"))
}

// LoadFile reads configuration from path (if non-empty) overlaid by environment variables.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESUME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	envBindings := map[string]string{
		"server.port":                  "RESUME_SERVER_PORT",
		"server.read_timeout":          "RESUME_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "RESUME_SERVER_WRITE_TIMEOUT",
		"server.environment":           "RESUME_SERVER_ENVIRONMENT",
		"server.max_upload_mb":         "RESUME_SERVER_MAX_UPLOAD_MB",
		"server.max_files":             "RESUME_SERVER_MAX_FILES",
		"server.cors_origins":          "RESUME_SERVER_CORS_ORIGINS",
		"log.level":                    "RESUME_LOG_LEVEL",
		"log.format":                   "RESUME_LOG_FORMAT",
		"extraction.quality_threshold": "RESUME_EXTRACTION_QUALITY_THRESHOLD",
		"extraction.min_page_chars":    "RESUME_EXTRACTION_MIN_PAGE_CHARS",
		"extraction.ocr_languages":     "RESUME_EXTRACTION_OCR_LANGUAGES",
		"extraction.dpi":               "RESUME_EXTRACTION_DPI",
		"extraction.max_pages":         "RESUME_EXTRACTION_MAX_PAGES",
		"extraction.pdftoppm_path":     "RESUME_EXTRACTION_PDFTOPPM_PATH",
		"extraction.tesseract_path":    "RESUME_EXTRACTION_TESSERACT_PATH",
		"extraction.tessdata_dir":      "RESUME_EXTRACTION_TESSDATA_DIR",
		"extraction.concurrency":       "RESUME_EXTRACTION_CONCURRENCY",
		"extraction.max_text_chars":    "RESUME_EXTRACTION_MAX_TEXT_CHARS",
		"llm.provider":                 "RESUME_LLM_PROVIDER",
		"llm.api_key":                  "RESUME_LLM_API_KEY",
		"llm.model":                    "RESUME_LLM_MODEL",
		"llm.endpoint":                 "RESUME_LLM_ENDPOINT",
		"llm.secondary.provider":       "RESUME_LLM_SECONDARY_PROVIDER",
		"llm.secondary.api_key":        "RESUME_LLM_SECONDARY_API_KEY",
		"llm.secondary.model":          "RESUME_LLM_SECONDARY_MODEL",
		"llm.secondary.endpoint":       "RESUME_LLM_SECONDARY_ENDPOINT",
		"llm.tertiary.provider":        "RESUME_LLM_TERTIARY_PROVIDER",
		"llm.tertiary.api_key":         "RESUME_LLM_TERTIARY_API_KEY",
		"llm.tertiary.model":           "RESUME_LLM_TERTIARY_MODEL",
		"llm.tertiary.endpoint":        "RESUME_LLM_TERTIARY_ENDPOINT",
		"llm.temperature":              "RESUME_LLM_TEMPERATURE",
		"llm.max_output_tokens":        "RESUME_LLM_MAX_OUTPUT_TOKENS",
		"llm.call_timeout":             "RESUME_LLM_CALL_TIMEOUT",
		"llm.max_attempts":             "RESUME_LLM_MAX_ATTEMPTS",
		"llm.backoff":                  "RESUME_LLM_BACKOFF",
		"llm.backoff_base":             "RESUME_LLM_BACKOFF_BASE",
		"llm.max_in_flight":            "RESUME_LLM_MAX_IN_FLIGHT",
		"llm.requests_per_second":      "RESUME_LLM_REQUESTS_PER_SECOND",
		"llm.burst":                    "RESUME_LLM_BURST",
		"audit.driver":                 "RESUME_AUDIT_DRIVER",
		"audit.queue_size":             "RESUME_AUDIT_QUEUE_SIZE",
		"audit.sqlite_path":            "RESUME_AUDIT_SQLITE_PATH",
		"db.host":                      "RESUME_DB_HOST",
		"db.port":                      "RESUME_DB_PORT",
		"db.user":                      "RESUME_DB_USER",
		"db.password":                  "RESUME_DB_PASSWORD",
		"db.name":                      "RESUME_DB_NAME",
		"db.sslmode":                   "RESUME_DB_SSLMODE",
		"db.max_open":                  "RESUME_DB_MAX_OPEN",
		"db.max_idle":                  "RESUME_DB_MAX_IDLE",
		"archive.enabled":              "RESUME_ARCHIVE_ENABLED",
		"archive.region":               "RESUME_ARCHIVE_REGION",
		"archive.bucket":               "RESUME_ARCHIVE_BUCKET",
		"archive.endpoint":             "RESUME_ARCHIVE_ENDPOINT",
		"archive.access_key":           "RESUME_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":           "RESUME_ARCHIVE_SECRET_KEY",
		"archive.presign_expiry":       "RESUME_ARCHIVE_PRESIGN_EXPIRY",
		"auth.enabled":                 "RESUME_AUTH_ENABLED",
		"auth.jwt_secret":              "RESUME_AUTH_JWT_SECRET",
		"auth.issuer":                  "RESUME_AUTH_ISSUER",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.max_files", 20)
	v.SetDefault("server.cors_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Extraction defaults
	v.SetDefault("extraction.quality_threshold", 0.5)
	v.SetDefault("extraction.min_page_chars", 20)
	v.SetDefault("extraction.ocr_languages", "eng,por")
	v.SetDefault("extraction.dpi", 300)
	v.SetDefault("extraction.max_pages", 20)
	v.SetDefault("extraction.pdftoppm_path", "pdftoppm")
	v.SetDefault("extraction.tesseract_path", "tesseract")
	v.SetDefault("extraction.tessdata_dir", "")
	v.SetDefault("extraction.concurrency", 4)
	v.SetDefault("extraction.max_text_chars", 15000)

	// LLM defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.tertiary.provider", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_output_tokens", 2048)
	v.SetDefault("llm.call_timeout", "60s")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.backoff", BackoffFixed)
	v.SetDefault("llm.backoff_base", "1s")
	v.SetDefault("llm.max_in_flight", 4)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 2)

	// Audit defaults
	v.SetDefault("audit.driver", AuditDriverNone)
	v.SetDefault("audit.queue_size", 256)
	v.SetDefault("audit.sqlite_path", "resumeanalyzer.db")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "resume")
	v.SetDefault("db.password", "resume_secret")
	v.SetDefault("db.name", "resume_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.presign_expiry", 3600)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if RESUME_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RESUME_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		MaxUploadMB:  v.GetInt64("server.max_upload_mb"),
		MaxFiles:     v.GetInt("server.max_files"),
		CORSOrigins:  splitList(v.GetStringSlice("server.cors_origins")),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extraction = ExtractionConfig{
		QualityThreshold: v.GetFloat64("extraction.quality_threshold"),
		MinPageChars:     v.GetInt("extraction.min_page_chars"),
		OCRLanguages:     splitList(v.GetStringSlice("extraction.ocr_languages")),
		DPI:              v.GetInt("extraction.dpi"),
		MaxPages:         v.GetInt("extraction.max_pages"),
		PdftoppmPath:     v.GetString("extraction.pdftoppm_path"),
		TesseractPath:    v.GetString("extraction.tesseract_path"),
		TessdataDir:      v.GetString("extraction.tessdata_dir"),
		Concurrency:      v.GetInt("extraction.concurrency"),
		MaxTextChars:     v.GetInt("extraction.max_text_chars"),
	}
	cfg.LLM = LLMConfig{
		Provider:          strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
		APIKey:            v.GetString("llm.api_key"),
		Model:             v.GetString("llm.model"),
		Endpoint:          v.GetString("llm.endpoint"),
		Temperature:       float32(v.GetFloat64("llm.temperature")),
		MaxOutputTokens:   v.GetInt32("llm.max_output_tokens"),
		CallTimeout:       v.GetDuration("llm.call_timeout"),
		MaxAttempts:       v.GetInt("llm.max_attempts"),
		Backoff:           strings.ToLower(v.GetString("llm.backoff")),
		BackoffBase:       v.GetDuration("llm.backoff_base"),
		MaxInFlight:       v.GetInt("llm.max_in_flight"),
		RequestsPerSecond: v.GetFloat64("llm.requests_per_second"),
		Burst:             v.GetInt("llm.burst"),
		Secondary:         providerFromViper(v, "llm.secondary"),
		Tertiary:          providerFromViper(v, "llm.tertiary"),
	}
	cfg.Audit = AuditConfig{
		Driver:     strings.ToLower(v.GetString("audit.driver")),
		QueueSize:  v.GetInt("audit.queue_size"),
		SQLitePath: v.GetString("audit.sqlite_path"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Archive = ArchiveConfig{
		Enabled:       v.GetBool("archive.enabled"),
		Region:        v.GetString("archive.region"),
		Bucket:        v.GetString("archive.bucket"),
		Endpoint:      v.GetString("archive.endpoint"),
		AccessKey:     v.GetString("archive.access_key"),
		SecretKey:     v.GetString("archive.secret_key"),
		PresignExpiry: v.GetInt64("archive.presign_expiry"),
	}
	cfg.Auth = AuthConfig{
		Enabled:   v.GetBool("auth.enabled"),
		JWTSecret: v.GetString("auth.jwt_secret"),
		Issuer:    v.GetString("auth.issuer"),
	}
	return cfg
}

func providerFromViper(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString(prefix + ".provider"))),
		APIKey:   v.GetString(prefix + ".api_key"),
		Model:    v.GetString(prefix + ".model"),
		Endpoint: v.GetString(prefix + ".endpoint"),
	}
}

// splitList accepts both list values and a single "eng,por" or "eng+por" string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == '+' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Extraction.QualityThreshold < 0 || c.Extraction.QualityThreshold > 1 {
		errs = append(errs, fmt.Errorf("extraction.quality_threshold must be within [0,1], got %v", c.Extraction.QualityThreshold))
	}
	if len(c.Extraction.OCRLanguages) == 0 {
		errs = append(errs, errors.New("extraction.ocr_languages must not be empty"))
	}
	if c.Extraction.DPI <= 0 {
		errs = append(errs, errors.New("extraction.dpi must be positive"))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.max_attempts must be at least 1"))
	}
	if c.LLM.MaxInFlight < 1 {
		errs = append(errs, errors.New("llm.max_in_flight must be at least 1"))
	}
	for _, p := range append([]ProviderConfig{{Provider: c.LLM.Provider}}, c.LLM.Fallbacks()...) {
		switch p.Provider {
		case ProviderGemini, ProviderClaude, ProviderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("unknown llm provider %q", p.Provider))
		}
	}
	switch c.LLM.Backoff {
	case BackoffFixed, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("llm.backoff must be %q or %q, got %q", BackoffFixed, BackoffExponential, c.LLM.Backoff))
	}
	switch c.Audit.Driver {
	case AuditDriverNone, AuditDriverPostgres, AuditDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown audit.driver %q", c.Audit.Driver))
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, errors.New("archive.bucket is required when archive is enabled"))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when auth is enabled"))
	}
	return errors.Join(errs...)
}
