package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Logger       *log.Logger
}

// UserStore reads users and records sign-ins.
type UserStore interface {
	UserReader
	SignInStore
}

// Dependencies are the services behind the HTTP surface.
type Dependencies struct {
	Users     UserStore
	Sessions  SessionRepository
	Playlists PlaylistService
	Generator Generator
	Publisher Publisher
	Chat      ChatService

	// Ready, when set, backs /healthz so an unreachable store reports 503.
	Ready func(context.Context) error

	// OAuth overrides the Spotify authenticator built from ServerConfig.
	OAuth OAuth
}

// Server is the HTTP server for the application.
type Server struct {
	router   chi.Router
	server   *http.Server
	logger   *log.Logger
	sessions *SessionStore
	ready    func(context.Context) error
	handlers *Handlers
	api      *API
}

// NewOAuth creates the Spotify authenticator with the scopes the curator needs.
func NewOAuth(clientID, clientSecret, redirectURI string) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	oauth := deps.OAuth
	if oauth == nil {
		oauth = NewOAuth(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI)
	}

	sessions := NewSessionStore(deps.Sessions)

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		sessions: sessions,
		ready:    deps.Ready,
		handlers: NewHandlers(oauth, deps.Users, sessions, logger),
		api: &API{
			users:     deps.Users,
			playlists: deps.Playlists,
			generator: deps.Generator,
			publisher: deps.Publisher,
			chat:      deps.Chat,
			logger:    logger,
		},
	}

	s.setupMiddleware()
	s.setupRoutes()

	// Generation waits on the model, so writes get a long timeout.
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  s.logger.StandardLog(),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handlers.Home)
	s.router.Get("/healthz", s.healthz)

	// Auth routes
	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Post("/auth/logout", s.handlers.Logout)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireSession(s.sessions, s.logger))

		r.Get("/user", s.api.User)
		r.Get("/playlists", s.api.Playlists)
		r.Get("/playlists/{id}/tracks", s.api.PlaylistTracks)
		r.Post("/generate-playlist", s.api.GeneratePlaylist)
		r.Post("/generated/{id}/publish", s.api.PublishGeneration)
		r.Get("/chat", s.api.ChatHistory)
		r.Post("/chat", s.api.SendChat)
		r.Delete("/chat", s.api.ResetChat)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for cancellation or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
