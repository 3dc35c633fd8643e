// Package generate turns a catalog of source playlists and a free-text
// request into a new playlist drawn from that catalog.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/llm"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// Completer sends a completion request to a language model.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Engine asks the model for an analysis and maps it back onto the catalog.
type Engine struct {
	model        Completer
	maxTokens    int
	moodClusters int
	logger       *log.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxTokens sets the output token ceiling of the model call.
func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithMoodClusters sets how many moods the prompt's mood profile has.
func WithMoodClusters(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.moodClusters = k
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine backed by model.
func NewEngine(model Completer, opts ...EngineOption) *Engine {
	e := &Engine{
		model:        model,
		maxTokens:    llm.DefaultMaxTokens,
		moodClusters: catalog.DefaultMoodClusters,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate returns the model's analysis and the catalog tracks it selected.
// When none of the recommendations match the catalog, the first catalog
// tracks are returned instead, so a non-empty catalog always yields tracks.
// Unparseable model output is reported as an *InvalidOutputError.
func (e *Engine) Generate(ctx context.Context, playlists []catalog.SourcePlaylist, request string) (*Analysis, []spotify.Track, error) {
	moods := catalog.MoodProfile(playlists, e.moodClusters)
	prompt := buildPrompt(playlists, moods, request)

	e.logger.Debug("requesting playlist analysis", "playlists", len(playlists), "prompt_bytes", len(prompt))

	raw, err := e.model.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		JSON:      true,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("requesting playlist analysis: %w", err)
	}

	// An exhausted output budget comes back as empty content.
	if strings.TrimSpace(raw) == "" {
		e.logger.Warn("model returned empty content, using default analysis")
		raw = "{}"
	}

	obj, err := parseObject(raw)
	if err != nil {
		e.logger.Warn("model returned unparseable output", "raw", truncate(raw, 500))
		return nil, nil, err
	}
	analysis := normalize(obj)

	tracks := reconcile(analysis.RecommendedTracks, playlists)
	if len(tracks) == 0 {
		e.logger.Info("no recommendations matched the catalog, using fallback",
			"recommendations", len(analysis.RecommendedTracks))
		tracks = fallback(playlists, maxFallbackTracks)
	}
	return analysis, tracks, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
