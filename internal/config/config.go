// Package config loads application configuration from a .env file, an
// optional TOML file and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/justestif/go-spotify-playlist-curator/internal/llm"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedirectURI must match the Spotify app configuration.
	DefaultRedirectURI = "http://127.0.0.1:8080/callback"

	// DefaultSpotifyRateLimit is the default pace of Spotify API requests per second.
	DefaultSpotifyRateLimit = 10
)

// ErrMissingCredentials is returned when the Spotify client credentials are not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")

// Config is the application configuration.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	RedirectURI  string  `toml:"redirect_uri"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second, 0 disables pacing
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DatabaseConfig contains database connection settings.
// An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// LLMConfig contains model API settings.
type LLMConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"` // Go duration, e.g. "90s"
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config with defaults applied.
func Default() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURI: DefaultRedirectURI,
			RateLimit:   DefaultSpotifyRateLimit,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		LLM: LLMConfig{
			BaseURL:   llm.DefaultBaseURL,
			Model:     llm.DefaultModel,
			MaxTokens: llm.DefaultMaxTokens,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. A missing .env file is ignored, as is a
// missing TOML file at path; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Spotify.ClientID, "SPOTIFY_ID")
	setString(&c.Spotify.ClientSecret, "SPOTIFY_SECRET")
	setString(&c.Spotify.RedirectURI, "REDIRECT_URI")
	setString(&c.Server.Addr, "ADDR")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.Timeout, "LLM_TIMEOUT")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing LLM_MAX_TOKENS: %w", err)
		}
		c.LLM.MaxTokens = n
	}
	if v := os.Getenv("SPOTIFY_RATE_LIMIT"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing SPOTIFY_RATE_LIMIT: %w", err)
		}
		c.Spotify.RateLimit = n
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("parsing LLM timeout: %w", err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Model returns the model client configuration.
func (c *Config) Model() llm.Config {
	// Validated in applyEnv.
	timeout, _ := time.ParseDuration(c.LLM.Timeout)
	return llm.Config{
		APIKey:    c.LLM.APIKey,
		BaseURL:   c.LLM.BaseURL,
		Model:     c.LLM.Model,
		MaxTokens: c.LLM.MaxTokens,
		Timeout:   timeout,
	}
}

// NewLogger creates a logger writing to w with timestamps and caller
// reporting enabled. The writer defaults to os.Stderr.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		l.SetLevel(lvl)
	}
	return l, nil
}
