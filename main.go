package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/medicore/medicore-api/internal/config"
	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/handler"
	"github.com/medicore/medicore-api/internal/mail"
	"github.com/medicore/medicore-api/internal/repository/redis"
	"github.com/medicore/medicore-api/internal/repository/sqlite"
	"github.com/medicore/medicore-api/internal/search"
	"github.com/medicore/medicore-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	stores := []handler.Pinger{db}
	var sessionStore domain.SessionRepository = db.Sessions()
	if cfg.Session.Store == config.SessionStoreRedis {
		rdb, err := redis.New(context.Background(), redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessionStore = rdb.Sessions()
		stores = append(stores, rdb)
	}
	slog.Info("session store ready", "store", cfg.Session.Store)

	var mailer domain.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		slog.Warn("smtp.host not set, OTP mail will be logged instead of sent")
		mailer = mail.NewLogMailer(logger)
	}

	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	otp := service.NewOTPEngine(hasher, cfg.Auth.OTPTTL, nil)
	sessions := service.NewSessionManager(sessionStore, db.Users(), cfg.Session.TTL, nil)
	tokens := service.NewSessionTokens(cfg.Session.Secret)
	authService := service.NewAuthService(db.Users(), hasher, otp, sessions, tokens, mailer)
	noteService := service.NewNoteService(db.Notes())

	httpClient := &http.Client{Timeout: cfg.Search.Timeout}
	providers := []search.Provider{
		search.NewWikipedia(httpClient, ""),
		search.NewPubMed(httpClient, ""),
	}
	if cfg.Search.YouTubeAPIKey != "" {
		providers = append(providers, search.NewYouTube(httpClient, "", cfg.Search.YouTubeAPIKey))
	}
	aggregator := search.NewAggregator(cfg.Search.Timeout, providers...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:         authService,
		Notes:        noteService,
		Search:       aggregator,
		Stores:       stores,
		AdminKey:     cfg.Admin.APIKey,
		CookieSecure: cfg.Server.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler.Wrap(mux, logger, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.RunJanitor(ctx, cfg.Session.JanitorInterval)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
