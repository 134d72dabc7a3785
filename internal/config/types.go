package config

import "time"

// Config is the top-level configuration parsed from .storyloop/config.yaml.
// Every field is optional; zero values fall back to defaults in applyDefaults.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Reviewer  ReviewerConfig  `yaml:"reviewer"`
	Loop      LoopConfig      `yaml:"loop"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AgentConfig selects the implementation agent.
type AgentConfig struct {
	Tool    string `yaml:"tool"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
	PTY     bool   `yaml:"pty"`
}

// ReviewerConfig selects the review agent. When Skip is true, review is
// bypassed and every implementation round is treated as passing.
type ReviewerConfig struct {
	Tool    string `yaml:"tool"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
	Skip    bool   `yaml:"skip"`
}

// LoopConfig bounds the work loops.
type LoopConfig struct {
	MaxRounds int `yaml:"max_rounds"`
}

// RateLimitConfig tunes rate-limit detection and backoff. Signatures, when
// set, replaces the built-in signature list entirely.
type RateLimitConfig struct {
	Signatures []string `yaml:"signatures"`
	Delays     []string `yaml:"delays"`
	WaitBudget string   `yaml:"wait_budget"`
}

// AgentTimeout returns the parsed agent timeout, or zero if unset.
func (c *Config) AgentTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Agent.Timeout)
	return d
}

// ReviewerTimeout returns the parsed reviewer timeout, or zero if unset.
func (c *Config) ReviewerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Reviewer.Timeout)
	return d
}

// WaitBudget returns the parsed rate-limit wait budget, or zero (unbounded)
// if unset.
func (c *Config) WaitBudget() time.Duration {
	d, _ := time.ParseDuration(c.RateLimit.WaitBudget)
	return d
}

// Delays returns the parsed backoff delay ladder, or nil if unset.
func (c *Config) Delays() []time.Duration {
	if len(c.RateLimit.Delays) == 0 {
		return nil
	}
	out := make([]time.Duration, 0, len(c.RateLimit.Delays))
	for _, s := range c.RateLimit.Delays {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil
		}
		out = append(out, d)
	}
	return out
}
