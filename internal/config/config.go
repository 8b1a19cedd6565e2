package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark" mapstructure:"benchmark"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend: "sqlite", "postgres" or
// "sheets" (the Apps Script web app).
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SheetsConfig holds the Google Apps Script web app settings.
type SheetsConfig struct {
	WebAppURL   string `yaml:"web_app_url" mapstructure:"web_app_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig selects and tunes the report generator.
type LLMConfig struct {
	Provider            string          `yaml:"provider" mapstructure:"provider"` // gemini, anthropic, none
	RequestsPerMinute   int             `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	BreakerThreshold    int             `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int             `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	Gemini              GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic           AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// GeminiConfig holds Gemini generateContent settings.
type GeminiConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	Model           string  `yaml:"model" mapstructure:"model"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	TopK            int     `yaml:"top_k" mapstructure:"top_k"`
	TopP            float64 `yaml:"top_p" mapstructure:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ReportConfig configures report composition.
type ReportConfig struct {
	ExpandSections     bool `yaml:"expand_sections" mapstructure:"expand_sections"`
	SectionConcurrency int  `yaml:"section_concurrency" mapstructure:"section_concurrency"`
	SectionTimeoutSecs int  `yaml:"section_timeout_secs" mapstructure:"section_timeout_secs"`
}

// PipelineConfig configures submission processing.
type PipelineConfig struct {
	ProcessTimeoutMins   int `yaml:"process_timeout_mins" mapstructure:"process_timeout_mins"`
	AIMaxAttempts        int `yaml:"ai_max_attempts" mapstructure:"ai_max_attempts"`
	AIInitialBackoffSecs int `yaml:"ai_initial_backoff_secs" mapstructure:"ai_initial_backoff_secs"`
	AIMaxBackoffSecs     int `yaml:"ai_max_backoff_secs" mapstructure:"ai_max_backoff_secs"`
	AIAttemptTimeoutSecs int `yaml:"ai_attempt_timeout_secs" mapstructure:"ai_attempt_timeout_secs"`
	HighQualityLength    int `yaml:"high_quality_length" mapstructure:"high_quality_length"`
	MinAcceptableLength  int `yaml:"min_acceptable_length" mapstructure:"min_acceptable_length"`
	MaxConcurrent        int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxQueued            int `yaml:"max_queued" mapstructure:"max_queued"`
}

// ScoringConfig overrides category weights, keyed by category name.
type ScoringConfig struct {
	Weights map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// BenchmarkConfig points at an alternative benchmark table. Empty uses the
// embedded one.
type BenchmarkConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EmailConfig holds SMTP settings. An empty host disables email.
type EmailConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	From        string `yaml:"from" mapstructure:"from"`
	FromName    string `yaml:"from_name" mapstructure:"from_name"`
	AdminEmail  string `yaml:"admin_email" mapstructure:"admin_email"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SalesforceConfig holds Salesforce JWT auth settings for lead sync.
type SalesforceConfig struct {
	ClientID   string `yaml:"client_id" mapstructure:"client_id"`
	Username   string `yaml:"username" mapstructure:"username"`
	KeyPath    string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string `yaml:"login_url" mapstructure:"login_url"`
	LeadSource string `yaml:"lead_source" mapstructure:"lead_source"`
}

// MonitoringConfig configures progress polling and quality alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	PollIntervalSecs     int     `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	CheckIntervalMins    int     `yaml:"check_interval_mins" mapstructure:"check_interval_mins"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinAvgConfidence     float64 `yaml:"min_avg_confidence" mapstructure:"min_avg_confidence"`
	MinSampleSize        int     `yaml:"min_sample_size" mapstructure:"min_sample_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// DrainTimeoutSecs bounds how long shutdown waits for running diagnoses.
	DrainTimeoutSecs int `yaml:"drain_timeout_secs" mapstructure:"drain_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIAGNOSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "diagnosis.db")
	v.SetDefault("sheets.timeout_secs", 30)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_cooldown_secs", 60)
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.temperature", 0.7)
	v.SetDefault("llm.gemini.top_k", 40)
	v.SetDefault("llm.gemini.top_p", 0.95)
	v.SetDefault("llm.gemini.max_output_tokens", 8192)
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.anthropic.max_tokens", 8192)
	v.SetDefault("report.expand_sections", true)
	v.SetDefault("report.section_concurrency", 4)
	v.SetDefault("report.section_timeout_secs", 120)
	v.SetDefault("pipeline.process_timeout_mins", 30)
	v.SetDefault("pipeline.ai_max_attempts", 5)
	v.SetDefault("pipeline.ai_initial_backoff_secs", 15)
	v.SetDefault("pipeline.ai_max_backoff_secs", 30)
	v.SetDefault("pipeline.ai_attempt_timeout_secs", 300)
	v.SetDefault("pipeline.high_quality_length", 5000)
	v.SetDefault("pipeline.min_acceptable_length", 3000)
	v.SetDefault("pipeline.max_concurrent", 20)
	v.SetDefault("pipeline.max_queued", 200)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from_name", "AI 역량진단")
	v.SetDefault("email.timeout_secs", 30)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_source", "AI Diagnosis")
	v.SetDefault("monitoring.poll_interval_secs", 5)
	v.SetDefault("monitoring.check_interval_mins", 15)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.min_avg_confidence", 60)
	v.SetDefault("monitoring.min_sample_size", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.drain_timeout_secs", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
