package women

import (
	"context"
	"testing"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestListPublishedOrdersByTimeThenTitle(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()

	f.addWomen(t, "Zelda", "zelda", f.actresses, day(2024, 1, 1), StatusPublished, false)
	f.addWomen(t, "Anna", "anna", f.actresses, day(2024, 1, 1), StatusPublished, false)
	f.addWomen(t, "Newest", "newest", f.singers, day(2025, 6, 1), StatusPublished, false)
	f.addWomen(t, "Hidden", "hidden", f.singers, day(2026, 1, 1), StatusDraft, false)

	entries, err := f.repo.ListPublished(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListPublished returned error: %v", err)
	}

	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, entry.Slug)
	}
	want := []string{"newest", "anna", "zelda"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if entries[0].Category.Name != "Singers" {
		t.Fatalf("expected category to be preloaded, got %+v", entries[0].Category)
	}
}

func TestListPublishedFilters(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()

	f.addWomen(t, "Anna", "anna", f.actresses, day(2025, 3, 1), StatusPublished, false, f.tagOscar)
	f.addWomen(t, "Maria", "maria", f.singers, day(2024, 12, 31), StatusPublished, false, f.tagClassic)
	f.addWomen(t, "Olga", "olga", f.actresses, day(2025, 1, 1), StatusPublished, false, f.tagOscar, f.tagClassic)

	cases := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"category id", ListOptions{CategoryID: f.actresses.ID}, 2},
		{"category slug", ListOptions{CategorySlug: "singers"}, 1},
		{"tag", ListOptions{TagSlug: "oscar"}, 2},
		{"year 2025", ListOptions{Year: 2025}, 2},
		{"year 2024", ListOptions{Year: 2024}, 1},
		{"year without entries", ListOptions{Year: 1999}, 0},
		{"unknown tag", ListOptions{TagSlug: "missing"}, 0},
	}

	for _, tc := range cases {
		entries, err := f.repo.ListPublished(ctx, tc.opts)
		if err != nil {
			t.Fatalf("%s: ListPublished returned error: %v", tc.name, err)
		}
		if len(entries) != tc.want {
			t.Fatalf("%s: expected %d entries, got %d", tc.name, tc.want, len(entries))
		}
	}
}

func TestLookupsReturnNilWhenMissing(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()

	if entry, err := f.repo.GetPublishedBySlug(ctx, "missing"); err != nil || entry != nil {
		t.Fatalf("expected nil entry, got %v / %v", entry, err)
	}
	if category, err := f.repo.GetCategoryByID(ctx, 999); err != nil || category != nil {
		t.Fatalf("expected nil category, got %v / %v", category, err)
	}
	if category, err := f.repo.GetCategoryBySlug(ctx, "missing"); err != nil || category != nil {
		t.Fatalf("expected nil category, got %v / %v", category, err)
	}
	if husband, err := f.repo.GetHusbandByID(ctx, 999); err != nil || husband != nil {
		t.Fatalf("expected nil husband, got %v / %v", husband, err)
	}
}

func TestGetPublishedBySlugSkipsDrafts(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()

	f.addWomen(t, "Draft", "draft", f.actresses, day(2025, 1, 1), StatusDraft, false)
	f.addWomen(t, "Live", "live", f.actresses, day(2025, 1, 1), StatusPublished, true, f.tagOscar)

	if entry, err := f.repo.GetPublishedBySlug(ctx, "draft"); err != nil || entry != nil {
		t.Fatalf("expected draft to be hidden, got %v / %v", entry, err)
	}

	entry, err := f.repo.GetPublishedBySlug(ctx, "live")
	if err != nil {
		t.Fatalf("GetPublishedBySlug returned error: %v", err)
	}
	if entry == nil || entry.Husband == nil || len(entry.Tags) != 1 {
		t.Fatalf("expected husband and tags to be preloaded, got %+v", entry)
	}
}

func TestValueTaken(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()

	entry := f.addWomen(t, "Anna", "anna", f.actresses, day(2025, 1, 1), StatusDraft, false)

	taken, err := f.repo.ValueTaken(ctx, "women", "slug", "anna", 0)
	if err != nil || !taken {
		t.Fatalf("expected slug to be taken, got %v / %v", taken, err)
	}

	taken, err = f.repo.ValueTaken(ctx, "women", "slug", "anna", entry.ID)
	if err != nil || taken {
		t.Fatalf("expected own slug to be free, got %v / %v", taken, err)
	}

	if _, err := f.repo.ValueTaken(ctx, "women", "title", "Anna", 0); err == nil {
		t.Fatalf("expected error for a column that is not unique")
	}
}

func TestTagsByIDs(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)

	tags, err := f.repo.TagsByIDs(context.Background(), []uint{f.tagOscar.ID, 999})
	if err != nil {
		t.Fatalf("TagsByIDs returned error: %v", err)
	}
	if len(tags) != 1 || tags[0].Slug != "oscar" {
		t.Fatalf("expected only the existing tag, got %+v", tags)
	}
}
