package http

import (
	stdhttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sitewomen/app/internal/admin"
	"sitewomen/app/internal/auth"
	"sitewomen/app/internal/media"
	"sitewomen/app/internal/urls"
	"sitewomen/app/internal/women"
)

// MediaStore is the media storage the server mounts and hands to the admin.
type MediaStore interface {
	media.Storage
	BaseURL() string
	Handler() stdhttp.Handler
}

// Options configures the HTTP server wiring.
type Options struct {
	Service     women.Service
	Repository  women.Repository
	Users       auth.Repository
	Sessions    *auth.Sessions
	Media       MediaStore
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings
	// CSRFKey enables CSRF protection of every unsafe request when set.
	CSRFKey      []byte
	CookieSecure bool
	// Registry defaults to urls.Default.
	Registry *urls.Registry
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the public site, the JSON API and the admin back office onto one router.
type Server struct {
	root        *mux.Router
	urls        *urls.Router
	api         huma.API
	handler     stdhttp.Handler
	service     women.Service
	repository  women.Repository
	media       MediaStore
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	rateLimiter *RateLimiter
	metrics     *metrics
}

var (
	defaultConverters    sync.Once
	defaultConvertersErr error
)

// registerConverters adds year4 to registry. The process-wide registry is only
// populated once however many servers are built.
func registerConverters(registry *urls.Registry) error {
	if registry == urls.Default {
		defaultConverters.Do(func() {
			defaultConvertersErr = urls.Register("year4", urls.FourDigitYearConverter{})
		})
		return defaultConvertersErr
	}
	return registry.Register("year4", urls.FourDigitYearConverter{})
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, eris.New("women service is required")
	}
	if opts.Repository == nil {
		return nil, eris.New("women repository is required")
	}
	if opts.Users == nil {
		return nil, eris.New("user repository is required")
	}
	if opts.Sessions == nil {
		return nil, eris.New("session store is required")
	}
	if opts.Media == nil {
		return nil, eris.New("media storage is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	registry := opts.Registry
	if registry == nil {
		registry = urls.Default
	}
	if err := registerConverters(registry); err != nil {
		return nil, eris.Wrap(err, "registering path converters")
	}

	root := mux.NewRouter()
	router, err := urls.NewRouter(root, registry)
	if err != nil {
		return nil, eris.Wrap(err, "creating url router")
	}

	srv := &Server{
		root:        root,
		urls:        router,
		api:         humamux.New(root, huma.DefaultConfig("Sitewomen", "1.0.0")),
		service:     opts.Service,
		repository:  opts.Repository,
		media:       opts.Media,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		db:          opts.Database,
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		metrics:     newMetrics(),
	}

	root.Use(srv.metricsMiddleware)
	root.NotFoundHandler = stdhttp.HandlerFunc(srv.notFoundHandler)

	if err := srv.registerPublicRoutes(); err != nil {
		return nil, err
	}
	srv.registerAPIRoutes()

	site, err := admin.NewSite(admin.SiteOptions{
		DB:        opts.Database,
		Router:    router,
		Users:     opts.Users,
		Sessions:  opts.Sessions,
		Logger:    opts.Logger,
		SentryHub: opts.SentryHub,
		StaticURL: "/static/",
		OnAction:  srv.metrics.recordAction,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating admin site")
	}
	err = women.RegisterAdmin(site, women.AdminOptions{
		Repo:    opts.Repository,
		Media:   opts.Media,
		Service: opts.Service,
	})
	if err != nil {
		return nil, eris.Wrap(err, "registering women admin")
	}

	if err := srv.registerAssetRoutes(); err != nil {
		return nil, err
	}

	var handler stdhttp.Handler = root
	if len(opts.CSRFKey) > 0 {
		handler = csrf.Protect(opts.CSRFKey,
			csrf.Secure(opts.CookieSecure),
			csrf.Path("/"),
			csrf.ErrorHandler(stdhttp.HandlerFunc(srv.csrfFailureHandler)),
		)(handler)
	}

	srv.handler = chain(handler,
		srv.sentryMiddleware,
		srv.recoveryMiddleware,
		srv.requestIDMiddleware,
		srv.rateLimitMiddleware,
		srv.loggingMiddleware,
	)

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// URLs exposes the named route table.
func (s *Server) URLs() *urls.Router {
	return s.urls
}

func (s *Server) registerPublicRoutes() error {
	routes := []struct {
		pattern string
		name    string
		handler stdhttp.HandlerFunc
	}{
		{"", "home", s.homeHandler},
		{"about/", "about", s.aboutHandler},
		{"cats/<int:cat_id>/", "cats_id", s.categoryByIDHandler},
		{"cats/<slug:cat_slug>/", "cats", s.categoryBySlugHandler},
		{"archive/<year4:year>/", "archive", s.archiveHandler},
		{"post/<slug:post_slug>/", "post", s.postHandler},
	}

	for _, route := range routes {
		err := s.urls.HandleFunc(route.pattern, route.name, route.handler, stdhttp.MethodGet, stdhttp.MethodHead)
		if err != nil {
			return eris.Wrapf(err, "registering route %s", route.name)
		}
	}
	return nil
}

func (s *Server) registerAssetRoutes() error {
	static, err := newStaticAssetHandler()
	if err != nil {
		return err
	}
	s.root.PathPrefix("/static/").Methods(stdhttp.MethodGet, stdhttp.MethodHead).Handler(static)

	mediaURL := s.media.BaseURL()
	if !strings.HasPrefix(mediaURL, "/") {
		return eris.Errorf("media url %s must be an absolute path", mediaURL)
	}
	s.root.PathPrefix(mediaURL).Methods(stdhttp.MethodGet, stdhttp.MethodHead).Handler(s.media.Handler())

	s.root.Handle("/metrics", s.metrics.handler()).Methods(stdhttp.MethodGet)
	return nil
}

// Close stops the rate limiter's background pruning.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}
