package auth

import (
	"encoding/base64"
	"encoding/gob"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rotisserie/eris"
)

const (
	defaultSessionName   = "sitewomen_session"
	defaultSessionMaxAge = 14 * 24 * time.Hour

	userIDSessionKey = "user_id"
	flashSessionKey  = "_messages"

	// KeyLength is the size of generated session and CSRF keys.
	KeyLength = 32
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level string
	Text  string
}

func init() {
	gob.Register(Flash{})
}

// SessionOptions configures the cookie session store.
type SessionOptions struct {
	Name          string
	AuthKey       []byte
	EncryptionKey []byte
	Secure        bool
	MaxAge        time.Duration
}

// Sessions keeps the logged-in user and flash messages in a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
	name  string
}

// NewSessions builds the cookie session store. The authentication key is mandatory;
// the encryption key is optional and must be 16, 24 or 32 bytes when given.
func NewSessions(opts SessionOptions) (*Sessions, error) {
	if len(opts.AuthKey) == 0 {
		return nil, eris.New("session authentication key is required")
	}
	switch len(opts.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return nil, eris.Errorf("session encryption key must be 16, 24 or 32 bytes, got %d", len(opts.EncryptionKey))
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = defaultSessionName
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}

	keyPairs := [][]byte{opts.AuthKey}
	if len(opts.EncryptionKey) > 0 {
		keyPairs = append(keyPairs, opts.EncryptionKey)
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Sessions{store: store, name: name}, nil
}

// session returns the current session. A cookie that fails to decode, for example
// after a key rotation, yields a fresh session instead of an error.
func (s *Sessions) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		session = sessions.NewSession(s.store, s.name)
		opts := *s.store.Options
		session.Options = &opts
		session.IsNew = true
	}
	return session
}

// Login stores the user id in a fresh session.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user *User) error {
	if user == nil {
		return eris.New("user is required")
	}

	session := s.session(r)
	session.Values = map[interface{}]interface{}{userIDSessionKey: user.ID}
	if err := session.Save(r, w); err != nil {
		return eris.Wrap(err, "saving login session")
	}
	return nil
}

// Logout drops every session value, keeping pending flash messages.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	flashes := session.Values[flashSessionKey]
	session.Values = make(map[interface{}]interface{})
	if flashes != nil {
		session.Values[flashSessionKey] = flashes
	}
	if err := session.Save(r, w); err != nil {
		return eris.Wrap(err, "saving logout session")
	}
	return nil
}

// UserID returns the logged-in user id.
func (s *Sessions) UserID(r *http.Request) (uint, bool) {
	id, ok := s.session(r).Values[userIDSessionKey].(uint)
	return id, ok && id != 0
}

// AddFlash queues a message for the next page.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, flash Flash) error {
	session := s.session(r)
	session.AddFlash(flash, flashSessionKey)
	if err := session.Save(r, w); err != nil {
		return eris.Wrap(err, "saving flash message")
	}
	return nil
}

// Flashes pops the queued messages.
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	session := s.session(r)
	raw := session.Flashes(flashSessionKey)
	if len(raw) == 0 {
		return nil, nil
	}

	flashes := make([]Flash, 0, len(raw))
	for _, value := range raw {
		if flash, ok := value.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}

	if err := session.Save(r, w); err != nil {
		return flashes, eris.Wrap(err, "saving session after reading flashes")
	}
	return flashes, nil
}

// GenerateKey returns a random base64 encoded key suitable for SESSION_AUTH_KEY,
// SESSION_ENC_KEY and CSRF_KEY.
func GenerateKey() (string, error) {
	key := securecookie.GenerateRandomKey(KeyLength)
	if key == nil {
		return "", eris.New("generating random key")
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeKey parses a base64 key. An empty value yields nil.
func DecodeKey(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, eris.Wrap(err, "decoding base64 key")
	}
	return key, nil
}
