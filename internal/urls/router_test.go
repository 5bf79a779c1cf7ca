package urls

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newTestRouter(t *testing.T) (*mux.Router, *Router) {
	t.Helper()

	registry := NewRegistry()
	if err := registry.Register("year4", FourDigitYearConverter{}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	m := mux.NewRouter()
	router, err := NewRouter(m, registry)
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	archive := func(w http.ResponseWriter, r *http.Request) {
		year, ok := Int(r, "year")
		if !ok {
			t.Errorf("expected year value in context")
		}
		fmt.Fprintf(w, "archive %d", year)
	}
	byID := func(w http.ResponseWriter, r *http.Request) {
		id, _ := Int(r, "cat_id")
		fmt.Fprintf(w, "id %d", id)
	}
	bySlug := func(w http.ResponseWriter, r *http.Request) {
		slug, _ := String(r, "cat_slug")
		fmt.Fprintf(w, "slug %s", slug)
	}

	for _, route := range []struct {
		pattern string
		name    string
		handler http.HandlerFunc
	}{
		{"cats/<int:cat_id>/", "cats_id", byID},
		{"cats/<slug:cat_slug>/", "cats", bySlug},
		{"archive/<year4:year>/", "archive", archive},
	} {
		if err := router.HandleFunc(route.pattern, route.name, route.handler, http.MethodGet); err != nil {
			t.Fatalf("HandleFunc(%s) returned error: %v", route.pattern, err)
		}
	}

	return m, router
}

func TestRouterDispatchesTypedSegments(t *testing.T) {
	t.Parallel()

	m, _ := newTestRouter(t)

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/archive/2025/", http.StatusOK, "archive 2025"},
		{"/archive/0042/", http.StatusOK, "archive 42"},
		{"/archive/25/", http.StatusNotFound, ""},
		{"/archive/20255/", http.StatusNotFound, ""},
		{"/cats/2/", http.StatusOK, "id 2"},
		{"/cats/actresses/", http.StatusOK, "slug actresses"},
		{"/cats/bad%20slug/", http.StatusNotFound, ""},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

		if rec.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.path, tc.status, rec.Code)
			continue
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Errorf("%s: expected body %q, got %q", tc.path, tc.body, rec.Body.String())
		}
	}
}

func TestRouterReverse(t *testing.T) {
	t.Parallel()

	_, router := newTestRouter(t)

	path, err := router.Reverse("archive", map[string]any{"year": 2025})
	if err != nil {
		t.Fatalf("Reverse returned error: %v", err)
	}
	if path != "/archive/2025/" {
		t.Fatalf("expected /archive/2025/, got %q", path)
	}

	if path := router.MustReverse("cats", map[string]any{"cat_slug": "singers"}); path != "/cats/singers/" {
		t.Fatalf("expected /cats/singers/, got %q", path)
	}

	if _, err := router.Reverse("archive", map[string]any{"year": 20255}); err == nil {
		t.Fatalf("expected five digit year to be rejected")
	}

	if _, err := router.Reverse("missing", nil); err == nil {
		t.Fatalf("expected unknown route to fail")
	}
}

func TestRouterRejectsUnknownConverter(t *testing.T) {
	t.Parallel()

	router, err := NewRouter(mux.NewRouter(), NewRegistry())
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	handler := func(http.ResponseWriter, *http.Request) {}
	if err := router.HandleFunc("archive/<year9:year>/", "archive", handler); err == nil {
		t.Fatalf("expected unknown converter to fail")
	}
}

func TestRouterFreezesRegistry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	router, err := NewRouter(mux.NewRouter(), registry)
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	if err := router.HandleFunc("about/", "about", func(http.ResponseWriter, *http.Request) {}); err != nil {
		t.Fatalf("HandleFunc returned error: %v", err)
	}

	if err := registry.Register("year4", FourDigitYearConverter{}); err == nil {
		t.Fatalf("expected registry to be frozen after compiling a route")
	}
}
