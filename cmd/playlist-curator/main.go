// Command playlist-curator runs the playlist curator web application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/chat"
	"github.com/justestif/go-spotify-playlist-curator/internal/config"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/generate"
	"github.com/justestif/go-spotify-playlist-curator/internal/llm"
	"github.com/justestif/go-spotify-playlist-curator/internal/memstore"
	"github.com/justestif/go-spotify-playlist-curator/internal/playlists"
	"github.com/justestif/go-spotify-playlist-curator/internal/publish"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
	"github.com/justestif/go-spotify-playlist-curator/internal/web"
)

// sessionSweepInterval is how often expired sessions are purged from Postgres.
const sessionSweepInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "playlist-curator",
		Usage: "Generate Spotify playlists from your library with a language model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "database-url",
						Usage:    "Postgres connection string",
						Sources:  cli.EnvVars("DATABASE_URL"),
						Required: true,
					},
				},
				Action: migrate,
			},
		},
		Action: serve,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func migrate(_ context.Context, cmd *cli.Command) error {
	if err := db.Migrate(cmd.String("database-url")); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

// userStore is what the curator needs from user persistence.
type userStore interface {
	auth.CredentialStore
	web.UserStore
}

// playlistStore is what the curator needs from the playlist cache.
type playlistStore interface {
	catalog.PlaylistLookup
	playlists.Store
}

// generationStore is what the curator needs from generation persistence.
type generationStore interface {
	generate.GenerationStore
	publish.GenerationStore
}

// stores groups the persistence backends, either Postgres or in-memory.
type stores struct {
	users       userStore
	sessions    web.SessionRepository
	playlists   playlistStore
	generations generationStore
	chat        chat.MessageStore
	ready       func(context.Context) error
	close       func()
}

// openStores connects to Postgres when a database URL is configured and
// falls back to the in-memory store otherwise.
func openStores(ctx context.Context, databaseURL string, logger *log.Logger) (*stores, error) {
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		m := memstore.New()
		return &stores{
			users:       m.Users(),
			sessions:    m.Sessions(),
			playlists:   m.Playlists(),
			generations: m.Generations(),
			chat:        m.ChatMessages(),
			close:       func() {},
		}, nil
	}

	if err := db.Migrate(databaseURL); err != nil {
		return nil, err
	}
	database, err := db.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	sessions := database.Sessions()
	go sweepSessions(ctx, sessions, logger)

	return &stores{
		users:       database.Users(),
		sessions:    sessions,
		playlists:   database.Playlists(),
		generations: database.Generations(),
		chat:        database.ChatMessages(),
		ready:       database.Ping,
		close:       database.Close,
	}, nil
}

// sweepSessions deletes expired sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *db.SessionRepository, logger *log.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				logger.Warn("deleting expired sessions", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("deleted expired sessions", "count", n)
			}
		}
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}

	modelCfg := cfg.Model()
	if err := modelCfg.Validate(); err != nil {
		return err
	}

	st, err := openStores(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer st.close()

	refresher := auth.NewRefresher(st.users, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
		auth.WithRefresherLogger(logger.With("component", "auth")))

	fetcherOpts := []auth.FetcherOption{auth.WithFetcherLogger(logger.With("component", "fetch"))}
	if rps := cfg.Spotify.RateLimit; rps > 0 {
		fetcherOpts = append(fetcherOpts, auth.WithRateLimit(rps, max(1, int(rps))))
	}
	spotifyClient := spotify.New(auth.NewFetcher(refresher, fetcherOpts...))

	aggregator := catalog.NewAggregator(st.playlists, spotifyClient, catalog.WithLogger(logger.With("component", "catalog")))
	model := llm.NewClient(modelCfg)
	engine := generate.NewEngine(model,
		generate.WithMaxTokens(modelCfg.MaxTokens),
		generate.WithEngineLogger(logger.With("component", "engine")))

	server := web.NewServer(web.ServerConfig{
		Addr:         cfg.Server.Addr,
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
		Logger:       logger,
	}, web.Dependencies{
		Users:     st.users,
		Sessions:  st.sessions,
		Playlists: playlists.New(spotifyClient, st.playlists, aggregator, logger.With("component", "playlists")),
		Generator: generate.NewService(aggregator, engine, st.generations, logger.With("component", "generate")),
		Publisher: publish.New(st.generations, st.users, spotifyClient, logger.With("component", "publish")),
		Chat:      chat.New(model, st.chat, logger.With("component", "chat")),
		Ready:     st.ready,
	})

	return server.Run(ctx)
}
