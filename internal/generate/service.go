package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
)

// DefaultPrompt is used when the request carries no prompt.
const DefaultPrompt = "Create an energetic playlist perfect for a road trip"

// ErrNoPlaylistsSelected is returned when a request names no source playlists.
var ErrNoPlaylistsSelected = errors.New("at least one playlist must be selected")

// CatalogBuilder loads the source playlists of a generation.
type CatalogBuilder interface {
	Build(ctx context.Context, userID string, playlistIDs []string) ([]catalog.SourcePlaylist, error)
}

// GenerationStore persists generations.
type GenerationStore interface {
	Create(ctx context.Context, g *db.Generation) error
}

// Request is a generation request from a user.
type Request struct {
	PlaylistIDs []string
	Prompt      string
}

// Outcome is a persisted generation together with the analysis behind it.
type Outcome struct {
	Generation *db.Generation
	Analysis   *Analysis
}

// Service runs generations end to end.
type Service struct {
	catalog CatalogBuilder
	engine  *Engine
	store   GenerationStore
	logger  *log.Logger
}

// NewService creates a new generation service.
func NewService(catalog CatalogBuilder, engine *Engine, store GenerationStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		catalog: catalog,
		engine:  engine,
		store:   store,
		logger:  logger,
	}
}

// Generate builds the catalog, runs the engine and stores the result. The
// generation is written once, after every upstream call has succeeded.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (*Outcome, error) {
	if len(req.PlaylistIDs) == 0 {
		return nil, ErrNoPlaylistsSelected
	}

	request := strings.TrimSpace(req.Prompt)
	var storedPrompt *string
	if request != "" {
		storedPrompt = &request
	} else {
		request = DefaultPrompt
	}

	playlists, err := s.catalog.Build(ctx, userID, req.PlaylistIDs)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	analysis, tracks, err := s.engine.Generate(ctx, playlists, request)
	if err != nil {
		return nil, err
	}

	g := &db.Generation{
		UserID:            userID,
		Name:              analysis.PlaylistName,
		Description:       analysis.PlaylistDescription,
		SourcePlaylistIDs: req.PlaylistIDs,
		Tracks:            tracks,
		Prompt:            storedPrompt,
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("saving generation: %w", err)
	}

	s.logger.Info("generated playlist", "user", userID, "generation", g.ID, "tracks", len(tracks))
	return &Outcome{Generation: g, Analysis: analysis}, nil
}
