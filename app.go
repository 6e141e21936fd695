package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/arminmz/sigil/contents"
	"github.com/arminmz/sigil/db/inmemory"
	"github.com/arminmz/sigil/db/sqlite3"
	"github.com/arminmz/sigil/discuss"
	"github.com/arminmz/sigil/server"
	"github.com/arminmz/sigil/web"
	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/env"
)

type App struct {
	server  *server.Server
	handler *web.Handler
	db      *sql.DB
}

func NewApp(ctx context.Context) (*App, error) {
	// A .env file is optional; real environment variables win.
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	slog.SetLogLoggerLevel(GetLogLevelFromEnv())

	var (
		db          *sql.DB
		commentRepo discuss.CommentRepository
	)

	switch backend := env.GetString("DB_BACKEND", "sqlite3"); backend {
	case "sqlite3":
		db, err = sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file:sigil.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}

		err = sqlite3.MigrateUp(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}

		commentRepo = sqlite3.NewCommentRepository(db)
	case "memory":
		commentRepo = inmemory.NewCommentRepository()
	default:
		return nil, fmt.Errorf("unknown db backend %q", backend)
	}

	contentsSvc := contents.NewService(env.GetString("POSTS_DIR", "./posts"))

	// The handler consumes the discuss service and also serves as its
	// cache invalidator, so wire the hook through a late-bound closure.
	var httpHandler *web.Handler

	discussSvc := discuss.NewService(commentRepo, discuss.WithInvalidator(
		discuss.InvalidatorFunc(func(ctx context.Context, postID string) {
			httpHandler.InvalidatePost(ctx, postID)
		}),
	))

	httpHandler, err = web.NewHandler(contentsSvc, discussSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	app := &App{
		server:  newServer(),
		handler: httpHandler,
		db:      db,
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	defer func() {
		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}
