package log

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

// SentrySettings represents the configuration required to bootstrap Sentry.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry creates a Sentry hub and forwards error-level logrus entries to it.
// Without a DSN it returns a nil hub and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if settings.DSN == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         settings.DSN,
		Environment: settings.Environment,
		Release:     settings.Release,
		ServerName:  "sitewomen",
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "initializing sentry client")
	}

	scope := sentry.NewScope()
	scope.SetTag("service", "sitewomen")
	hub := sentry.NewHub(client, scope)

	if logger != nil {
		logger.AddHook(sentrylogrus.NewLogHookFromClient([]logrus.Level{
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		}, client))
	}

	return hub, func() { hub.Flush(sentryFlushTimeout) }, nil
}
