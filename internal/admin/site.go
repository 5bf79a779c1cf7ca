package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/csrf"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sitewomen/app/internal/auth"
	"sitewomen/app/internal/urls"
)

const (
	defaultPrefix    = "admin"
	defaultSiteTitle = "Sitewomen administration"
	defaultStaticURL = "/static/"

	invalidLoginMessage = "Please enter the correct username and password for a staff account. Note that both fields may be case-sensitive."
)

type contextKey string

const userContextKey contextKey = "sitewomen/admin-user"

// SiteOptions configures NewSite.
type SiteOptions struct {
	DB        *gorm.DB
	Router    *urls.Router
	Users     auth.Repository
	Sessions  *auth.Sessions
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	Prefix    string
	Title     string
	StaticURL string
	// OnAction is told about every bulk action that ran to completion.
	OnAction func(model, action string)
}

// Site is the admin back office mounted under Prefix.
type Site struct {
	db        *gorm.DB
	router    *urls.Router
	users     auth.Repository
	sessions  *auth.Sessions
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	prefix    string
	title     string
	staticURL string
	onAction  func(model, action string)

	models []modelEntry
}

type modelEntry struct {
	Name              string
	VerboseNamePlural string
	ListURL           string
	AddURL            string
}

// NewSite registers the login, logout and index pages on the router.
func NewSite(opts SiteOptions) (*Site, error) {
	if opts.DB == nil {
		return nil, eris.New("gorm DB is required")
	}
	if opts.Router == nil {
		return nil, eris.New("url router is required")
	}
	if opts.Users == nil {
		return nil, eris.New("user repository is required")
	}
	if opts.Sessions == nil {
		return nil, eris.New("session store is required")
	}

	prefix := strings.Trim(opts.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	title := opts.Title
	if title == "" {
		title = defaultSiteTitle
	}
	staticURL := opts.StaticURL
	if staticURL == "" {
		staticURL = defaultStaticURL
	}

	site := &Site{
		db:        opts.DB,
		router:    opts.Router,
		users:     opts.Users,
		sessions:  opts.Sessions,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
		prefix:    prefix,
		title:     title,
		staticURL: staticURL,
		onAction:  opts.OnAction,
	}

	routes := []struct {
		pattern string
		name    string
		handler http.HandlerFunc
		methods []string
	}{
		{prefix + "/login/", "admin:login", site.handleLogin, []string{http.MethodGet, http.MethodPost}},
		{prefix + "/logout/", "admin:logout", site.handleLogout, []string{http.MethodPost}},
		{prefix + "/", "admin:index", site.requireStaff(site.handleIndex), []string{http.MethodGet}},
	}
	for _, route := range routes {
		if err := site.router.HandleFunc(route.pattern, route.name, route.handler, route.methods...); err != nil {
			return nil, eris.Wrapf(err, "registering %s", route.name)
		}
	}

	return site, nil
}

// CurrentUser returns the staff user of an admin request.
func CurrentUser(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userContextKey).(*auth.User)
	return user
}

func (s *Site) url(name string, values map[string]any) string {
	return s.router.MustReverse(name, values)
}

func (s *Site) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if err != nil {
			s.serverError(w, r, err, "loading admin user")
			return
		}
		if !user.CanUseAdmin() {
			target := s.url("admin:login", nil) + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

func (s *Site) currentUser(r *http.Request) (*auth.User, error) {
	id, ok := s.sessions.UserID(r)
	if !ok {
		return nil, nil
	}
	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		return nil, eris.Wrapf(err, "loading user %d", id)
	}
	return user, nil
}

func (s *Site) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"), s.url("admin:index", nil))

	if user, err := s.currentUser(r); err == nil && user.CanUseAdmin() && r.Method == http.MethodGet {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	page := loginPage{Next: next, Action: s.url("admin:login", nil)}

	if r.Method == http.MethodPost {
		page.Username = strings.TrimSpace(r.PostFormValue("username"))

		user, err := s.users.Authenticate(r.Context(), page.Username, r.PostFormValue("password"))
		switch {
		case eris.Is(err, auth.ErrInvalidCredentials):
			page.Error = invalidLoginMessage
		case err != nil:
			s.serverError(w, r, err, "authenticating admin user")
			return
		default:
			if err := s.sessions.Login(w, r, user); err != nil {
				s.serverError(w, r, err, "starting admin session")
				return
			}
			s.logInfo(logrus.Fields{"user_id": user.ID}, "admin login")
			http.Redirect(w, r, next, http.StatusFound)
			return
		}
	}

	s.render(w, r, http.StatusOK, "Log in", loginView(page))
}

func (s *Site) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.serverError(w, r, err, "ending admin session")
		return
	}
	s.addMessage(w, r, Message{Level: LevelInfo, Text: "Thanks for spending some quality time with the web site today."})
	http.Redirect(w, r, s.url("admin:login", nil), http.StatusFound)
}

func (s *Site) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "Site administration", indexView(indexPage{Models: s.models}))
}

func (s *Site) addMessage(w http.ResponseWriter, r *http.Request, message Message) {
	if err := s.sessions.AddFlash(w, r, auth.Flash{Level: string(message.Level), Text: message.Text}); err != nil {
		s.recordError(r, logrus.Fields{"message": message.Text}, err, "storing admin message")
	}
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	flashes, err := s.sessions.Flashes(w, r)
	if err != nil {
		s.recordError(r, nil, err, "reading admin messages")
	}

	messages := make([]Message, 0, len(flashes))
	for _, flash := range flashes {
		messages = append(messages, Message{Level: Level(flash.Level), Text: flash.Text})
	}

	data := layoutData{
		SiteTitle: s.title,
		PageTitle: title,
		IndexURL:  s.url("admin:index", nil),
		LogoutURL: s.url("admin:logout", nil),
		StaticURL: s.staticURL,
		Messages:  messages,
		CSRF:      templ.Raw(string(csrf.TemplateField(r))),
	}
	if user := CurrentUser(r.Context()); user != nil {
		data.Username = user.Username
	}

	var buf bytes.Buffer
	if err := layoutView(data, body).Render(r.Context(), &buf); err != nil {
		s.recordError(r, nil, err, "rendering admin page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.recordError(r, nil, err, message)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Site) recordError(r *http.Request, fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithFields(logrus.Fields{
			"component": "admin",
			"error":     err.Error(),
			"path":      r.URL.Path,
		})
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func (s *Site) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithField("component", "admin").WithFields(fields).Info(message)
}

// safeNext keeps redirects on this host.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}
