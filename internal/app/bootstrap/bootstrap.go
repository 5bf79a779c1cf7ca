package bootstrap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sitewomen/app/internal/auth"
	"sitewomen/app/internal/config"
	"sitewomen/app/internal/db"
	apphttp "sitewomen/app/internal/http"
	"sitewomen/app/internal/media"
	"sitewomen/app/internal/women"
)

type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Service    women.Service
	Users      auth.Repository
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// OpenDatabase opens the configured database and runs every migration.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	if cfg.DBDriver == db.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, eris.Wrapf(err, "creating database directory for %s", cfg.DBPath)
		}
	}

	conn, err := db.Open(db.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, DSN: cfg.DBDSN})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if err := women.Migrate(ctx, conn, logger); err != nil {
		closeQuietly(conn, logger)
		return nil, eris.Wrap(err, "running women migrations")
	}
	if err := auth.Migrate(ctx, conn, logger); err != nil {
		closeQuietly(conn, logger)
		return nil, eris.Wrap(err, "running auth migrations")
	}

	return conn, nil
}

// Build composes the sitewomen application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config
	if cfg == nil {
		return Result{}, eris.New("configuration is required")
	}

	conn, err := OpenDatabase(ctx, cfg, deps.Logger)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		closeQuietly(conn, deps.Logger)
		return Result{}, wrapper
	}

	repo, err := women.NewRepository(conn, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating women repository"))
	}

	service, err := women.NewService(women.ServiceOptions{
		Repository:       repo,
		Logger:           deps.Logger,
		SentryHub:        deps.SentryHub,
		CategoryCacheTTL: cfg.CategoryCacheTTL,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating women service"))
	}

	users, err := auth.NewRepository(conn, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating user repository"))
	}

	sessions, err := buildSessions(cfg, deps.Logger)
	if err != nil {
		return closeOnError(err)
	}

	csrfKey, err := auth.DecodeKey(cfg.CSRFKey)
	if err != nil {
		return closeOnError(eris.Wrap(err, "decoding CSRF_KEY"))
	}
	if len(csrfKey) > 0 && len(csrfKey) != auth.KeyLength {
		return closeOnError(eris.Errorf("CSRF_KEY must decode to %d bytes, got %d", auth.KeyLength, len(csrfKey)))
	}

	storage, err := media.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating media storage"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Service:    service,
		Repository: repo,
		Users:      users,
		Sessions:   sessions,
		Media:      storage,
		Database:   conn,
		Logger:     deps.Logger,
		SentryHub:  deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
		CSRFKey:      csrfKey,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return db.Close(conn)
	}

	return Result{
		Service:    service,
		Users:      users,
		HTTPServer: httpServer,
		Database:   conn,
		Cleanup:    cleanup,
	}, nil
}

// buildSessions decodes the session keys. Outside production missing keys are
// generated, which logs every staff user out on restart.
func buildSessions(cfg *config.Config, logger *logrus.Logger) (*auth.Sessions, error) {
	authKey, err := auth.DecodeKey(cfg.SessionAuthKey)
	if err != nil {
		return nil, eris.Wrap(err, "decoding SESSION_AUTH_KEY")
	}
	encKey, err := auth.DecodeKey(cfg.SessionEncKey)
	if err != nil {
		return nil, eris.Wrap(err, "decoding SESSION_ENC_KEY")
	}

	if len(authKey) == 0 {
		if cfg.IsProduction() {
			return nil, eris.New("SESSION_AUTH_KEY is required in production")
		}
		generated, err := auth.GenerateKey()
		if err != nil {
			return nil, err
		}
		if authKey, err = auth.DecodeKey(generated); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Warn("SESSION_AUTH_KEY not set, using a temporary key")
		}
	}

	sessions, err := auth.NewSessions(auth.SessionOptions{
		AuthKey:       authKey,
		EncryptionKey: encKey,
		Secure:        cfg.CookieSecure,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating session store")
	}
	return sessions, nil
}

func closeQuietly(conn *gorm.DB, logger *logrus.Logger) {
	if closeErr := db.Close(conn); closeErr != nil && logger != nil {
		logger.WithError(closeErr).Error("closing database after bootstrap failure")
	}
}
