package media

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedType is returned for uploads that are not a known image format.
var ErrUnsupportedType = eris.New("unsupported image type")

// MaxUploadSize caps a single photo upload.
const MaxUploadSize = 10 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage saves uploaded photos and resolves their public URLs.
type Storage interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// LocalStorage keeps files below a root directory and serves them under baseURL.
type LocalStorage struct {
	root    string
	baseURL string
	logger  *logrus.Logger
	now     func() time.Time
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates root when missing.
func NewLocalStorage(root, baseURL string, logger *logrus.Logger) (*LocalStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, eris.New("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating media root %s", root)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &LocalStorage{root: root, baseURL: baseURL, logger: logger, now: time.Now}, nil
}

// Save stores the upload as photos/YYYY/MM/DD/<uuid><ext> and returns that relative name.
func (s *LocalStorage) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", eris.New("file is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Size > MaxUploadSize {
		return "", eris.Errorf("file %s exceeds %d bytes", file.Filename, MaxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return "", eris.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "", eris.Wrap(err, "detecting upload type")
	}
	ext, ok := allowedTypes[detected.String()]
	if !ok {
		return "", eris.Wrapf(ErrUnsupportedType, "%s is %s", file.Filename, detected.String())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", eris.Wrap(err, "rewinding uploaded file")
	}

	name := path.Join("photos", s.now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
	fullPath := filepath.Join(s.root, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", eris.Wrap(err, "creating media directories")
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", eris.Wrap(err, "creating media file")
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(fullPath)
		return "", eris.Wrap(err, "writing media file")
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", eris.Wrap(err, "closing media file")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "media",
			"name":      name,
			"size":      file.Size,
		}).Info("stored upload")
	}

	return name, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "deleting media file %s", name)
	}
	return nil
}

// URL returns the public URL of a stored file, or "" for an empty name.
func (s *LocalStorage) URL(name string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(name), "/")
	if trimmed == "" {
		return ""
	}
	return s.baseURL + trimmed
}

// BaseURL is the prefix under which Handler must be mounted.
func (s *LocalStorage) BaseURL() string {
	return s.baseURL
}

// Handler serves stored files. Directory listings are refused.
func (s *LocalStorage) Handler() http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(s.baseURL, "/"), http.FileServer(http.Dir(s.root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *LocalStorage) resolve(name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(name))
	if cleaned == "/" {
		return "", eris.New("media name is required")
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}
