package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration. A missing token is reported
// as an authentication error on its own, ahead of any other problem.
func (v *Validator) Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.GitHubToken) == "" {
		return core.ErrAuth("github_token is required")
	}

	v.validateLog(&cfg.Log)
	v.validateGate(&cfg.Gate)
	v.validateAPI(&cfg.API)
	v.validateRunner(&cfg.Runner)

	if len(v.errors) > 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "invalid configuration").WithCause(v.errors)
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true, "actions": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json, actions")
	}
}

func (v *Validator) validateGate(cfg *GateConfig) {
	if cfg.PollInterval <= 0 {
		v.addError("gate.poll_interval", cfg.PollInterval, "must be positive")
	}
	if cfg.MaxWait < 0 {
		v.addError("gate.max_wait", cfg.MaxWait, "must not be negative")
	}
}

func (v *Validator) validateAPI(cfg *APIConfig) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("api.url", cfg.URL, "must be an absolute URL")
	}
	if cfg.Timeout <= 0 {
		v.addError("api.timeout", cfg.Timeout, "must be positive")
	}
}

func (v *Validator) validateRunner(cfg *RunnerConfig) {
	if cfg.Owner() == "" || cfg.Name() == "" {
		v.addError("runner.repository", cfg.Repository, "must be owner/name (GITHUB_REPOSITORY)")
	}
	if cfg.RunID <= 0 {
		v.addError("runner.run_id", cfg.RunID, "must be set (GITHUB_RUN_ID)")
	}
}
