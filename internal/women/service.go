package women

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service exposes the read side of the public site.
type Service interface {
	Published(ctx context.Context, opts ListOptions) ([]Women, error)
	CategoryByID(ctx context.Context, id uint) (*Category, []Women, error)
	CategoryBySlug(ctx context.Context, slug string) (*Category, []Women, error)
	Archive(ctx context.Context, year int) ([]Women, error)
	GetBySlug(ctx context.Context, slug string) (*Women, error)
	Categories(ctx context.Context) ([]Category, error)
	InvalidateCategories()
}

// ErrNotFound indicates the requested entry or category does not exist or is not published.
var ErrNotFound = eris.New("not found")

const (
	categoriesCacheKey     = "categories"
	defaultCategoryTTL     = 5 * time.Minute
	categoryCleanupSpacing = 10 * time.Minute
)

type service struct {
	repo      Repository
	cache     *cache.Cache
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// ServiceOptions configures NewService.
type ServiceOptions struct {
	Repository       Repository
	Logger           *logrus.Logger
	SentryHub        *sentry.Hub
	CategoryCacheTTL time.Duration
}

// NewService wires the public read service with its dependencies.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("women repository is required")
	}

	ttl := opts.CategoryCacheTTL
	if ttl <= 0 {
		ttl = defaultCategoryTTL
	}

	return &service{
		repo:      opts.Repository,
		cache:     cache.New(ttl, categoryCleanupSpacing),
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

func (s *service) Published(ctx context.Context, opts ListOptions) ([]Women, error) {
	entries, err := s.repo.ListPublished(ctx, opts)
	if err != nil {
		s.recordError(logrus.Fields{"options": opts}, err, "listing published women")
		return nil, eris.Wrap(err, "listing published women")
	}
	return entries, nil
}

func (s *service) CategoryByID(ctx context.Context, id uint) (*Category, []Women, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"category_id": id}, err, "retrieving category")
		return nil, nil, eris.Wrapf(err, "retrieving category %d", id)
	}
	if category == nil {
		return nil, nil, eris.Wrapf(ErrNotFound, "category %d", id)
	}

	entries, err := s.Published(ctx, ListOptions{CategoryID: category.ID})
	if err != nil {
		return nil, nil, err
	}
	return category, entries, nil
}

func (s *service) CategoryBySlug(ctx context.Context, slug string) (*Category, []Women, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, nil, eris.Wrap(ErrNotFound, "empty category slug")
	}

	category, err := s.repo.GetCategoryBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving category")
		return nil, nil, eris.Wrapf(err, "retrieving category %s", trimmed)
	}
	if category == nil {
		return nil, nil, eris.Wrapf(ErrNotFound, "category %s", trimmed)
	}

	entries, err := s.Published(ctx, ListOptions{CategoryID: category.ID})
	if err != nil {
		return nil, nil, err
	}
	return category, entries, nil
}

func (s *service) Archive(ctx context.Context, year int) ([]Women, error) {
	if year < 0 || year > 9999 {
		return nil, eris.Errorf("year %d out of range", year)
	}
	return s.Published(ctx, ListOptions{Year: year})
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Women, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.Wrap(ErrNotFound, "empty slug")
	}

	entry, err := s.repo.GetPublishedBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving women by slug")
		return nil, eris.Wrapf(err, "retrieving women %s", trimmed)
	}
	if entry == nil {
		return nil, eris.Wrapf(ErrNotFound, "women %s", trimmed)
	}
	return entry, nil
}

// Categories returns the menu categories, served from cache when warm.
func (s *service) Categories(ctx context.Context) ([]Category, error) {
	if cached, ok := s.cache.Get(categoriesCacheKey); ok {
		if categories, ok := cached.([]Category); ok {
			return categories, nil
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.recordError(nil, err, "listing categories")
		return nil, eris.Wrap(err, "listing categories")
	}

	s.cache.SetDefault(categoriesCacheKey, categories)
	return categories, nil
}

func (s *service) InvalidateCategories() {
	s.cache.Delete(categoriesCacheKey)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
