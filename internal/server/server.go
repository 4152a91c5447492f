// Package server is the composition root: it opens both snippet stores,
// builds the services and handlers on top of them, and mounts the routes.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → local.Store (badger)  ┐
//	  → sqlite.DB             ┴→ SnippetService → SnippetHandler
//	                           → Migrator → MigrationTrigger ┐
//	  → TokenService, PasswordService → AuthService          ┴→ AuthHandler
//
// Nothing below this package constructs its own dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippet-shelf/internal/auth"
	"github.com/sakif/snippet-shelf/internal/config"
	"github.com/sakif/snippet-shelf/internal/handler"
	"github.com/sakif/snippet-shelf/internal/middleware"
	"github.com/sakif/snippet-shelf/internal/repository/local"
	"github.com/sakif/snippet-shelf/internal/repository/sqlite"
	"github.com/sakif/snippet-shelf/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server owns the router and both stores. Close releases the stores.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	local  *local.Store
	remote *sqlite.DB
}

// New opens the stores described by cfg and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	remote, err := OpenRemote(cfg.Storage.RemoteDB)
	if err != nil {
		return nil, err
	}

	localStore, err := local.Open(cfg.Storage.LocalDir, cfg.Storage.LocalInMemory, logger)
	if err != nil {
		remote.Close()
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		local:  localStore,
		remote: remote,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// OpenRemote opens the relational store, creating the parent directory of
// a file database.
func OpenRemote(path string) (*sqlite.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz
//	GET    /api/snippets?type=&tag=&q=
//	POST   /api/snippets
//	GET    /api/snippets/{id}
//	PATCH  /api/snippets/{id}
//	DELETE /api/snippets/{id}
//	POST   /api/snippets/{id}/pin
//	POST   /api/snippets/{id}/use
//	GET    /api/tags
//	GET    /api/stats
//	GET    /api/languages
//	GET    /api/export?format=
//	POST   /api/import?format=
//	GET    /api/me                  (auth enabled)
//	POST   /auth/register|login|logout (auth enabled)
//	GET    /auth/github/login|callback (GitHub configured)
//
// MIDDLEWARE ORDER MATTERS:
// OptionalAuth runs before Logger so the log line carries the owner.
func (s *Server) setupRoutes() error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	var tokens *auth.TokenService
	if cfg.AuthEnabled() {
		var err error
		if tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret); err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		s.router.Use(auth.OptionalAuth(tokens))
	} else {
		s.logger.Warn("jwt_secret not set, authentication is disabled")
	}
	s.router.Use(middleware.Logger(s.logger))

	snippets := service.NewSnippetService(service.Options{
		Local:     s.local,
		Remote:    s.remote,
		LocalOnly: cfg.Storage.LocalOnly,
		Logger:    s.logger,
	})
	snippetHandler := handler.NewSnippetHandler(snippets, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	var authHandler *handler.AuthHandler
	if tokens != nil {
		migrator := snippets.NewMigrator(cfg.Migration.Workers)
		trigger := service.NewMigrationTrigger(migrator, cfg.Storage.LocalOnly, s.logger)
		authService := service.NewAuthService(s.remote, tokens, auth.NewPasswordService(), s.logger)

		var github handler.GitHubAuth
		if cfg.GitHubEnabled() {
			github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
		}
		secure := strings.HasPrefix(cfg.Auth.GitHubCallbackURL, "https://")
		authHandler = handler.NewAuthHandler(github, authService, tokens, trigger, secure, s.logger)

		s.router.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGet)
		r.Patch("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
		r.Post("/snippets/{id}/pin", snippetHandler.HandleTogglePin)
		r.Post("/snippets/{id}/use", snippetHandler.HandleUse)
		r.Get("/tags", snippetHandler.HandleTags)
		r.Get("/stats", snippetHandler.HandleStats)
		r.Get("/languages", snippetHandler.HandleKinds)
		r.Get("/export", snippetHandler.HandleExport)
		r.Post("/import", snippetHandler.HandleImport)
		if authHandler != nil {
			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		}
	})
	return nil
}

// handleHealth reports the schema version; a dirty schema is a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.remote.SchemaVersion()
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"unavailable"}`+"\n")
		return
	}
	fmt.Fprintf(w, `{"status":"ok","schema":%d,"localOnly":%t}`+"\n", version, s.config.Storage.LocalOnly)
}

// Close releases both stores.
func (s *Server) Close() error {
	return errors.Join(s.local.Close(), s.remote.Close())
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the stores.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing stores", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // sign-in may run a migration
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("remote_db", s.config.Storage.RemoteDB),
			slog.String("local_dir", s.config.Storage.LocalDir),
			slog.Bool("local_only", s.config.Storage.LocalOnly),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
