package media

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

// pngHeader is enough of a PNG signature for type detection.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestLocalStorageSaveImage(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	storage.now = func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }

	name, err := storage.Save(context.Background(), fileHeader(t, "portrait.png", pngHeader))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if !strings.HasPrefix(name, "photos/2024/03/05/") || !strings.HasSuffix(name, ".png") {
		t.Fatalf("unexpected stored name %q", name)
	}

	stored, err := os.ReadFile(filepath.Join(storage.root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if !bytes.Equal(stored, pngHeader) {
		t.Fatalf("stored content differs from upload")
	}

	if got := storage.URL(name); got != "/media/"+name {
		t.Fatalf("expected url /media/%s, got %q", name, got)
	}
}

func TestLocalStorageRejectsNonImages(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	_, err := storage.Save(context.Background(), fileHeader(t, "notes.txt", []byte("plain text")))
	if !eris.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestLocalStorageURLEmpty(t *testing.T) {
	t.Parallel()

	if got := newTestStorage(t).URL("  "); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
}

func TestLocalStorageHandlerAndDelete(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	ctx := context.Background()

	name, err := storage.Save(ctx, fileHeader(t, "a.png", pngHeader))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	storage.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, storage.URL(name), nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 serving media, got %d", recorder.Code)
	}

	listing := httptest.NewRecorder()
	storage.Handler().ServeHTTP(listing, httptest.NewRequest(http.MethodGet, "/media/photos/", nil))
	if listing.Code != http.StatusNotFound {
		t.Fatalf("expected directory listing to be refused, got %d", listing.Code)
	}

	if err := storage.Delete(ctx, name); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := storage.Delete(ctx, name); err != nil {
		t.Fatalf("deleting a missing file should succeed, got %v", err)
	}
}

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()

	storage, err := NewLocalStorage(t.TempDir(), "/media", nil)
	if err != nil {
		t.Fatalf("NewLocalStorage returned error: %v", err)
	}
	return storage
}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/", body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	if err := request.ParseMultipartForm(MaxUploadSize); err != nil {
		t.Fatalf("ParseMultipartForm returned error: %v", err)
	}

	return request.MultipartForm.File["photo"][0]
}
