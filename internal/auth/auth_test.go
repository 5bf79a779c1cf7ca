package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"sitewomen/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, " admin ", "s3cret", true)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Username != "admin" {
		t.Fatalf("expected trimmed username, got %q", created.Username)
	}
	if created.PasswordHash == "s3cret" {
		t.Fatalf("expected password to be hashed")
	}

	user, err := repo.Authenticate(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	if _, err := repo.Authenticate(ctx, "admin", "wrong"); !eris.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "ghost", "s3cret"); !eris.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthenticateRejectsNonStaff(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "reader", "pass", false); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := repo.Authenticate(ctx, "reader", "pass"); !eris.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected non-staff login to fail, got %v", err)
	}
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "admin", "one", true); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := repo.Create(ctx, "admin", "two", true); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestGetByIDReturnsNilForMissingUser(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	user, err := repo.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %#v", user)
	}
}

func TestSessionsLoginRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestSessions(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/admin/login/", nil)
	if err := store.Login(recorder, request, &User{ID: 7}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := store.AddFlash(recorder, request, Flash{Level: "success", Text: "Welcome"}); err != nil {
		t.Fatalf("AddFlash returned error: %v", err)
	}

	next := requestWithCookies(recorder)
	id, ok := store.UserID(next)
	if !ok || id != 7 {
		t.Fatalf("expected user id 7, got %d (ok=%v)", id, ok)
	}

	flashRecorder := httptest.NewRecorder()
	flashes, err := store.Flashes(flashRecorder, next)
	if err != nil {
		t.Fatalf("Flashes returned error: %v", err)
	}
	if len(flashes) != 1 || flashes[0].Text != "Welcome" {
		t.Fatalf("unexpected flashes: %#v", flashes)
	}

	after := requestWithCookies(flashRecorder)
	again, err := store.Flashes(httptest.NewRecorder(), after)
	if err != nil {
		t.Fatalf("Flashes returned error: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected flashes to be consumed, got %#v", again)
	}
}

func TestSessionsLogoutClearsUser(t *testing.T) {
	t.Parallel()

	store := newTestSessions(t)

	recorder := httptest.NewRecorder()
	if err := store.Login(recorder, httptest.NewRequest(http.MethodPost, "/", nil), &User{ID: 3}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	logoutRecorder := httptest.NewRecorder()
	if err := store.Logout(logoutRecorder, requestWithCookies(recorder)); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, ok := store.UserID(requestWithCookies(logoutRecorder)); ok {
		t.Fatalf("expected no user after logout")
	}
}

func TestNewSessionsValidatesKeys(t *testing.T) {
	t.Parallel()

	if _, err := NewSessions(SessionOptions{}); err == nil {
		t.Fatalf("expected error without auth key")
	}
	if _, err := NewSessions(SessionOptions{AuthKey: []byte("k"), EncryptionKey: []byte("short")}); err == nil {
		t.Fatalf("expected error for invalid encryption key length")
	}
}

func TestGenerateKeyDecodes(t *testing.T) {
	t.Parallel()

	encoded, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey returned error: %v", err)
	}

	key, err := DecodeKey(encoded)
	if err != nil {
		t.Fatalf("DecodeKey returned error: %v", err)
	}
	if len(key) != KeyLength {
		t.Fatalf("expected %d byte key, got %d", KeyLength, len(key))
	}

	if empty, err := DecodeKey("  "); err != nil || empty != nil {
		t.Fatalf("expected nil key for blank input, got %v / %v", empty, err)
	}
	if _, err := DecodeKey("not base64!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()

	store, err := NewSessions(SessionOptions{AuthKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewSessions returned error: %v", err)
	}
	return store
}

func requestWithCookies(recorder *httptest.ResponseRecorder) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	// Each session save appends a Set-Cookie header; the last one wins.
	latest := make(map[string]*http.Cookie)
	var order []string
	for _, cookie := range recorder.Result().Cookies() {
		if _, seen := latest[cookie.Name]; !seen {
			order = append(order, cookie.Name)
		}
		latest[cookie.Name] = cookie
	}
	for _, name := range order {
		request.AddCookie(latest[name])
	}
	return request
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}
