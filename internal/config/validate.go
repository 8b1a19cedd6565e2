package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the fields a command needs are present and sane.
// mode is the command name: serve, diagnose, monitor, export, quality or
// benchmark.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateProcessing()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "diagnose":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateProcessing()...)
	case "monitor", "export", "quality":
		errs = append(errs, c.validateStore()...)
	case "benchmark":
		// Uses the benchmark table only.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	case "sheets":
		if c.Sheets.WebAppURL == "" {
			errs = append(errs, "sheets.web_app_url is required for sheets")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite, postgres or sheets", c.Store.Driver))
	}
	return errs
}

func (c *Config) validateProcessing() []string {
	var errs []string

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.Gemini.Key == "" {
			errs = append(errs, "llm.gemini.key is required")
		}
	case "anthropic":
		if c.LLM.Anthropic.Key == "" {
			errs = append(errs, "llm.anthropic.key is required")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q must be gemini, anthropic or none", c.LLM.Provider))
	}

	p := c.Pipeline
	if p.ProcessTimeoutMins <= 0 {
		errs = append(errs, "pipeline.process_timeout_mins must be > 0")
	}
	if p.AIMaxAttempts < 1 || p.AIMaxAttempts > 10 {
		errs = append(errs, "pipeline.ai_max_attempts must be between 1 and 10")
	}
	if p.MinAcceptableLength < 0 || p.MinAcceptableLength > p.HighQualityLength {
		errs = append(errs, "pipeline.min_acceptable_length must be between 0 and high_quality_length")
	}
	if p.MaxConcurrent < 1 || p.MaxConcurrent > 100 {
		errs = append(errs, "pipeline.max_concurrent must be between 1 and 100")
	}
	if p.MaxQueued < 0 {
		errs = append(errs, "pipeline.max_queued must be >= 0")
	}
	if c.Report.SectionConcurrency < 1 || c.Report.SectionConcurrency > 12 {
		errs = append(errs, "report.section_concurrency must be between 1 and 12")
	}
	for k, w := range c.Scoring.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, fmt.Sprintf("scoring.weights.%s must be a finite number >= 0", k))
		}
	}
	return errs
}
