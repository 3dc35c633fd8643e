// Package llm provides a client for OpenAI-compatible chat completion APIs.
package llm

import (
	"errors"
	"time"
)

// Defaults used when a Config field is left empty.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 16000
	DefaultTimeout   = 2 * time.Minute
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing model API key")

// Config holds model API configuration.
type Config struct {
	APIKey    string
	BaseURL   string // OpenAI or OpenRouter style base, without /chat/completions
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// withDefaults returns a copy of c with empty fields filled in.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate reports whether the configuration can be used to call the API.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
