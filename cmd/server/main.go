// Cosmic Frontier - marketing site with the SONAR chat assistant
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/api"
	"github.com/ashureev/cosmic-frontier/internal/chat"
	"github.com/ashureev/cosmic-frontier/internal/config"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/ashureev/cosmic-frontier/internal/middleware"
	"github.com/ashureev/cosmic-frontier/internal/remote"
	"github.com/ashureev/cosmic-frontier/internal/session"
	"github.com/ashureev/cosmic-frontier/internal/sonar"
	"github.com/ashureev/cosmic-frontier/internal/store"
	pages "github.com/ashureev/cosmic-frontier/internal/web"
	"github.com/ashureev/cosmic-frontier/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "dev", cfg.IsDevelopment())

	// The site works without the lead store; submissions are then only logged.
	var (
		repo  store.Repository
		leads pages.LeadSaver
		db    sonar.Pinger
	)
	sqliteStore, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database, leads will not be stored", "error", err)
	} else {
		defer func() {
			if closeErr := sqliteStore.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
		repo, leads, db = sqliteStore, sqliteStore, sqliteStore
		slog.Info("Database connected", "path", cfg.DBPath)
	}

	// Initialize services.
	client := remote.New(remote.Config{
		AuthBaseURL: cfg.Remote.AuthURL,
		ChatBaseURL: cfg.Remote.ChatURL,
		ChatModel:   cfg.Remote.ChatModel,
		Timeout:     cfg.Remote.Timeout,
	})
	chatSvc := chat.NewService(client)
	sonarSvc := sonar.NewService(sonar.Config{
		APIKey:      cfg.Perplexity.APIKey,
		BaseURL:     cfg.Perplexity.BaseURL,
		Model:       cfg.Perplexity.Model,
		MaxTokens:   cfg.Perplexity.MaxTokens,
		Temperature: cfg.Perplexity.Temperature,
	})
	if !sonarSvc.Configured() {
		slog.Warn("PERPLEXITY_API_KEY not set, completion proxy will reject requests")
	}

	secure := !cfg.IsDevelopment()
	hashKey, blockKey := cfg.CookieKeys()
	creds := session.NewCredentialStore(hashKey, blockKey, secure)
	visits := session.NewManager()
	notifier := session.NewNotifier()
	hub := chat.NewHub()
	notifier.Subscribe(hub.OnAuthChanged)

	// Initialize handlers.
	pageHandler := pages.NewHandler(visits, creds, notifier, client, chatSvc, leads)
	wsHandler := chat.NewWebSocketHandler(chatSvc, visits, hub, cfg.FrontendURL, cfg.IsDevelopment())
	sonarHandler := sonar.NewHandler(sonarSvc, db)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Handle("/static/*", web.StaticHandler())
	r.Handle("/metrics", metrics.Handler())

	// Completion proxy; open to any origin.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{"*"}))
		sonarHandler.Mount(r)
		if !cfg.IsProduction() {
			r.Get("/health", sonarHandler.Health)
			if repo != nil {
				api.NewLeadsHandler(repo).RegisterRoutes(r)
			}
		}
	})

	// Site routes carry the visitor and auth state.
	r.Group(func(r chi.Router) {
		r.Use(session.VisitorMiddleware(secure))
		r.Use(session.AuthMiddleware(creds))
		pageHandler.Mount(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Create server.
	// Chat posts wait on the remote assistant without a deadline, so there
	// is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	srv.RegisterOnShutdown(hub.CloseAll)

	// Start TTL worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartTTLWorker(ctx, visits, cfg.SessionTTL, hub.CloseVisitor)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
