package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mitranim/rql/internal/config"
	"github.com/mitranim/rql/internal/logger"
	"github.com/mitranim/rql/jsonapi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `serve`,
		Short: `Serve the articles collection over HTTP`,
		Long: `Serve the demo articles collection as a JSON:API resource backed by SQLite.

Examples:
  rqlapi serve
  curl 'localhost:8080/articles?filter=ge(rating,3)&sort=-published&page[size]=2'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	conf, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(conf.Log.Level, conf.IsDev())
	if err != nil {
		return err
	}

	db, err := sql.Open(`sqlite`, conf.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	repo, err := newArticleRepo(ctx, db, conf.Database.Seed)
	if err != nil {
		return err
	}

	app, err := newApp(log, conf, repo)
	if err != nil {
		return err
	}
	app.Server.ReadTimeout = time.Duration(conf.Server.ReadTimeout) * time.Second
	app.Server.WriteTimeout = time.Duration(conf.Server.WriteTimeout) * time.Second

	errs := make(chan error, 1)
	go func() {
		log.Info().Str(`addr`, conf.Server.Addr).Str(`env`, conf.Env).Msg(`listening`)
		errs <- app.Start(conf.Server.Addr)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		log.Info().Msg(`shutting down`)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	}
}

func newApp(log zerolog.Logger, conf *config.Config, repo jsonapi.Repository) (*echo.Echo, error) {
	headers, err := conf.Server.HeaderMap()
	if err != nil {
		return nil, err
	}

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true

	app.Use(middleware.Recover())
	app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, val middleware.RequestLoggerValues) error {
			var event *zerolog.Event
			switch {
			case val.Status >= 500:
				event = log.Error()
			case val.Status >= 400:
				event = log.Warn()
			default:
				event = log.Info()
			}

			event.
				Str(`method`, val.Method).
				Str(`uri`, val.URI).
				Int(`status`, val.Status).
				Dur(`latency`, val.Latency).
				Msg(`request`)
			return nil
		},
	}))

	ctrl := jsonapi.New(articleType, repo)
	ctrl.PageSize = conf.Server.PageSize
	ctrl.Headers = headers
	ctrl.Log = log
	ctrl.Register(app.Group(`/` + articleType))
	return app, nil
}
