package women

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
)

func newTestService(t *testing.T, f *fixtures) Service {
	t.Helper()

	service, err := NewService(ServiceOptions{Repository: f.repo, Logger: silentLogger()})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return service
}

func TestNewServiceRequiresRepository(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceOptions{}); err == nil {
		t.Fatalf("expected error without repository")
	}
}

func TestServiceCategoryListings(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	service := newTestService(t, f)
	ctx := context.Background()

	f.addWomen(t, "Anna", "anna", f.actresses, day(2025, 1, 1), StatusPublished, false)
	f.addWomen(t, "Draft", "draft", f.actresses, day(2025, 1, 2), StatusDraft, false)

	category, entries, err := service.CategoryByID(ctx, f.actresses.ID)
	if err != nil {
		t.Fatalf("CategoryByID returned error: %v", err)
	}
	if category.Slug != "actresses" || len(entries) != 1 {
		t.Fatalf("expected one published actress, got %v / %d", category, len(entries))
	}

	_, entries, err = service.CategoryBySlug(ctx, "singers")
	if err != nil {
		t.Fatalf("CategoryBySlug returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty singers listing, got %d", len(entries))
	}

	if _, _, err := service.CategoryByID(ctx, 999); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, _, err := service.CategoryBySlug(ctx, "missing"); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown slug, got %v", err)
	}
}

func TestServiceArchive(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	service := newTestService(t, f)
	ctx := context.Background()

	f.addWomen(t, "Early", "early", f.actresses, day(2025, 1, 1), StatusPublished, false)
	f.addWomen(t, "Late", "late", f.actresses, day(2025, 12, 31), StatusPublished, false)
	f.addWomen(t, "Other", "other", f.actresses, day(2024, 12, 31), StatusPublished, false)

	entries, err := service.Archive(ctx, 2025)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].Slug != "late" {
		t.Fatalf("expected late and early for 2025, got %+v", entries)
	}

	if _, err := service.Archive(ctx, 10000); err == nil {
		t.Fatalf("expected error for year out of range")
	}
}

func TestServiceGetBySlug(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	service := newTestService(t, f)
	ctx := context.Background()

	f.addWomen(t, "Anna", "anna", f.actresses, day(2025, 1, 1), StatusPublished, false)

	entry, err := service.GetBySlug(ctx, " anna ")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if entry.Title != "Anna" {
		t.Fatalf("expected Anna, got %q", entry.Title)
	}

	if _, err := service.GetBySlug(ctx, "missing"); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceCachesCategoriesUntilInvalidated(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	service := newTestService(t, f)
	ctx := context.Background()

	first, err := service.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(first))
	}

	if err := f.db.Create(&Category{Name: "Writers", Slug: "writers"}).Error; err != nil {
		t.Fatalf("creating category: %v", err)
	}

	cached, err := service.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected cached categories, got %d", len(cached))
	}

	service.InvalidateCategories()

	fresh, err := service.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("expected 3 categories after invalidation, got %d", len(fresh))
	}
}
