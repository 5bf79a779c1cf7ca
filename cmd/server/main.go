package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"sitewomen/app/internal/app/bootstrap"
	"sitewomen/app/internal/auth"
	"sitewomen/app/internal/config"
	appdb "sitewomen/app/internal/db"
	applog "sitewomen/app/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:           "sitewomen",
		Usage:          "Famous women catalogue with an admin back office",
		DefaultCommand: "serve",
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			_ = godotenv.Load()
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:  "createsuperuser",
				Usage: "Create a staff account for the admin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "login name", Required: true},
					&cli.StringFlag{Name: "password", Usage: "password", Required: true},
				},
				Action: createSuperuser,
			},
			{
				Name:   "generate-keys",
				Usage:  "Print new SESSION_AUTH_KEY, SESSION_ENC_KEY and CSRF_KEY values for .env",
				Action: generateKeys,
			},
		},
	}
}

type appRuntime struct {
	cfg    *config.Config
	logger *logrus.Logger
	flush  func()
	deps   bootstrap.Dependencies
}

func loadRuntime() (*appRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising sentry")
	}

	return &appRuntime{
		cfg:    cfg,
		logger: logger,
		flush:  flush,
		deps:   bootstrap.Dependencies{Config: cfg, Logger: logger, SentryHub: sentryHub},
	}, nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.flush()

	app, err := bootstrap.Build(ctx, rt.deps)
	if err != nil {
		return eris.Wrap(err, "building application")
	}
	defer func() {
		if closeErr := app.Cleanup(); closeErr != nil {
			rt.logger.WithError(closeErr).Error("closing database")
		}
	}()

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", rt.cfg.ServerPort),
		Handler: app.HTTPServer.Handler(),
	}

	rt.logger.WithFields(logrus.Fields{
		"addr":   httpServer.Addr,
		"driver": rt.cfg.DBDriver,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		rt.logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	rt.logger.Info("http server shut down cleanly")
	return nil
}

func migrate(ctx context.Context, _ *cli.Command) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.flush()

	conn, err := bootstrap.OpenDatabase(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := appdb.Close(conn); closeErr != nil {
			rt.logger.WithError(closeErr).Error("closing database")
		}
	}()

	rt.logger.Info("migrations applied")
	return nil
}

func createSuperuser(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.flush()

	conn, err := bootstrap.OpenDatabase(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := appdb.Close(conn); closeErr != nil {
			rt.logger.WithError(closeErr).Error("closing database")
		}
	}()

	users, err := auth.NewRepository(conn, rt.logger)
	if err != nil {
		return eris.Wrap(err, "creating user repository")
	}

	user, err := users.Create(ctx, cmd.String("username"), cmd.String("password"), true)
	if err != nil {
		return eris.Wrap(err, "creating superuser")
	}

	fmt.Fprintf(cmd.Root().Writer, "Superuser %q created.\n", user.Username)
	return nil
}

func generateKeys(_ context.Context, cmd *cli.Command) error {
	for _, name := range []string{"SESSION_AUTH_KEY", "SESSION_ENC_KEY", "CSRF_KEY"} {
		key, err := auth.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "%s=%s\n", name, key)
	}
	return nil
}
