package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/ACHamster/travel-diary-mobile/internal/api"
	"github.com/ACHamster/travel-diary-mobile/internal/db"
	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/service/auth"
	"github.com/ACHamster/travel-diary-mobile/internal/service/posts"
	"github.com/ACHamster/travel-diary-mobile/internal/service/storage"
	"github.com/ACHamster/travel-diary-mobile/internal/service/user"
	"github.com/ACHamster/travel-diary-mobile/internal/session"
	"github.com/ACHamster/travel-diary-mobile/internal/transport"
)

type App struct {
	Logger logger.Logger

	Auth    *auth.Service
	Posts   *posts.Service
	Users   *user.Service
	Storage *storage.Service

	conn *sql.DB
}

// NewApp wires the client. Auth failure hint is written to stderr.
func NewApp(ctx context.Context, c *Config, stderr io.Writer) (*App, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &App{Logger: l}

	// Open session storage
	var store session.Store
	switch {
	case c.Ephemeral:
		store = session.NewMemoryStore()
	default:
		path, err := c.SessionPath()
		if err != nil {
			return nil, err
		}
		app.conn, err = db.OpenAndMigrate(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("error while opening session db. Err: %w", err)
		}
		store = session.NewSQLiteStore(app.conn)
	}

	tr := transport.WithLogging(transport.NewHTTP(c.RequestTimeout), l)
	client, err := api.New(api.Config{
		BaseURL: c.APIBaseURL(),
		OnAuthFailure: func(ctx context.Context) {
			_, _ = fmt.Fprintln(stderr, "Session expired, please log in: traveldiary login -u <username> -p <password>")
		},
	}, store, tr, l)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error while creating api client. Err: %w", err)
	}

	// Initialize services
	app.Auth = auth.NewService(client, store, l)
	app.Posts = posts.NewService(client, l)
	app.Users = user.NewService(client, store, l)
	app.Storage = storage.NewService(client, l)

	return app, nil
}

func (a *App) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
