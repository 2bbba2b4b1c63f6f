// Package server wires the repositories, services, handlers, and middleware
// together and owns the HTTP lifecycle. It is the composition root: every
// dependency is constructed here and nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"

	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/cache"
	"github.com/sakif/snipvault/internal/handler"
	"github.com/sakif/snipvault/internal/middleware"
	sqliteRepo "github.com/sakif/snipvault/internal/repository/sqlite"
	"github.com/sakif/snipvault/internal/service"
)

// Config holds everything the server needs to start. It is populated from
// the environment in cmd/server and passed in as a single value.
type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	RedisAddr          string // empty selects the in-process cache
	SecureCookies      bool
}

// Server owns the router and the resources that must be released on
// shutdown: the database connection and, when configured, the Redis client.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New builds the full dependency graph. All snippet and tag routes require
// an authenticated user, because every query and cache key is scoped to the
// requesting owner.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Cache backend: Redis when an address is configured, otherwise an
	// in-process LRU. Both honour the same invalidation contract.
	var c cache.Cache
	if s.config.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: s.config.RedisAddr})
		c = cache.NewRedis(s.redis, s.logger)
		s.logger.Info("using redis cache", slog.String("addr", s.config.RedisAddr))
	} else {
		c = cache.NewMemory()
		s.logger.Info("using in-process cache")
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	snippetService := service.NewSnippetService(s.db, s.db, s.db, c, s.logger)
	tagService := service.NewTagService(s.db, c, snippetService, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.config.SecureCookies, s.logger)

	s.router.Route("/auth/github", func(r chi.Router) {
		r.Get("/login", authHandler.HandleGitHubLogin)
		r.Get("/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Get("/languages", snippetHandler.HandleLanguages)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/snippets", snippetHandler.HandleList)
			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Get("/snippets/{id}", snippetHandler.HandleGet)
			r.Patch("/snippets/{id}", snippetHandler.HandleUpdate)
			r.Post("/snippets/{id}/trash", snippetHandler.HandleTrash)
			r.Post("/snippets/{id}/restore", snippetHandler.HandleRestore)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
			r.Put("/snippets/{id}/favorite", snippetHandler.HandleFavorite)

			r.Get("/tags", tagHandler.HandleList)
			r.Post("/tags", tagHandler.HandleCreate)
			r.Delete("/tags/{id}", tagHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database and Redis connections.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.redis != nil {
		defer s.redis.Close()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
