package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedTools is the set of agent tools the runner knows how to invoke.
var recognizedTools = map[string]bool{
	"claude": true,
	"codex":  true,
	"cursor": true,
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Agent.Tool != "" && !recognizedTools[cfg.Agent.Tool] {
		errs = append(errs, ValidationError{
			Field:   "agent.tool",
			Message: fmt.Sprintf("unrecognized tool %q", cfg.Agent.Tool),
		})
	}
	if cfg.Reviewer.Tool != "" && !recognizedTools[cfg.Reviewer.Tool] {
		errs = append(errs, ValidationError{
			Field:   "reviewer.tool",
			Message: fmt.Sprintf("unrecognized tool %q", cfg.Reviewer.Tool),
		})
	}
	if cfg.Loop.MaxRounds < 0 {
		errs = append(errs, ValidationError{
			Field:   "loop.max_rounds",
			Message: "must not be negative",
		})
	}

	for _, f := range []struct {
		field string
		value string
	}{
		{"agent.timeout", cfg.Agent.Timeout},
		{"reviewer.timeout", cfg.Reviewer.Timeout},
		{"rate_limit.wait_budget", cfg.RateLimit.WaitBudget},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.ParseDuration(f.value); err != nil {
			errs = append(errs, ValidationError{
				Field:   f.field,
				Message: fmt.Sprintf("invalid duration %q", f.value),
			})
		}
	}

	for i, d := range cfg.RateLimit.Delays {
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rate_limit.delays[%d]", i),
				Message: fmt.Sprintf("invalid duration %q", d),
			})
		}
	}

	return errs
}
