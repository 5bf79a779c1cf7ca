package women

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"sitewomen/app/internal/admin"
)

func TestMarriedFilterPartitionsWomen(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	f.addWomen(t, "Anna", "anna", f.actresses, day(2025, 1, 1), StatusPublished, true)
	f.addWomen(t, "Maria", "maria", f.actresses, day(2025, 1, 2), StatusPublished, false)
	f.addWomen(t, "Olga", "olga", f.singers, day(2025, 1, 3), StatusDraft, false)

	count := func(value string) int64 {
		var n int64
		if err := (MarriedFilter{}).Queryset(f.db.Model(&Women{}), value).Count(&n).Error; err != nil {
			t.Fatalf("counting %q: %v", value, err)
		}
		return n
	}

	married, single, all := count("married"), count("single"), count("")
	if married != 1 || single != 2 {
		t.Fatalf("expected 1 married and 2 single, got %d and %d", married, single)
	}
	if married+single != all {
		t.Fatalf("expected filters to partition %d rows, got %d + %d", all, married, single)
	}
	if count("widowed") != all {
		t.Fatalf("expected unknown token to leave the query unchanged")
	}
}

func TestMarriedFilterLookups(t *testing.T) {
	t.Parallel()

	filter := MarriedFilter{}
	if filter.Title() != "Women status" || filter.Parameter() != "status" {
		t.Fatalf("unexpected filter identity %q / %q", filter.Title(), filter.Parameter())
	}

	lookups, err := filter.Lookups(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookups returned error: %v", err)
	}
	if len(lookups) != 2 || lookups[0] != (admin.Lookup{Value: "married", Label: "Married"}) || lookups[1] != (admin.Lookup{Value: "single", Label: "Single"}) {
		t.Fatalf("unexpected lookups %+v", lookups)
	}
}

func TestSetStatusCountsEverySelectedRow(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ids := make([]uint, 0, 5)
	for i, slug := range []string{"a", "b", "c", "d", "e"} {
		status := StatusDraft
		if i >= 3 {
			status = StatusPublished
		}
		ids = append(ids, f.addWomen(t, strings.ToUpper(slug), slug, f.actresses, day(2025, 1, i+1), status, false).ID)
	}

	count, err := SetStatus(f.db.Model(&Women{}).Where("id IN ?", ids), StatusPublished)
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 affected rows, got %d", count)
	}

	var published int64
	if err := f.db.Model(&Women{}).Where("is_published = ?", StatusPublished).Count(&published).Error; err != nil {
		t.Fatalf("counting published: %v", err)
	}
	if published != 5 {
		t.Fatalf("expected every row published, got %d", published)
	}

	message, err := draftAction(context.Background(), f.db.Model(&Women{}).Where("id IN ?", ids[:2]))
	if err != nil {
		t.Fatalf("draftAction returned error: %v", err)
	}
	if message.Level != admin.LevelWarning || message.Text != "2 records unpublished!" {
		t.Fatalf("unexpected draft message %+v", message)
	}

	message, err = publishAction(context.Background(), f.db.Model(&Women{}).Where("id IN ?", ids[:1]))
	if err != nil {
		t.Fatalf("publishAction returned error: %v", err)
	}
	if message.Level != admin.LevelInfo || message.Text != "Changed 1 records." {
		t.Fatalf("unexpected publish message %+v", message)
	}
}

func TestPostPhoto(t *testing.T) {
	t.Parallel()

	render := func(entry *Women) string {
		var buf bytes.Buffer
		urlFor := func(name string) string { return "/media/" + name }
		if err := PostPhoto(entry, urlFor).Render(context.Background(), &buf); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		return buf.String()
	}

	if got := render(&Women{}); got != "No photo" {
		t.Fatalf("expected No photo, got %q", got)
	}
	if got := render(&Women{Photo: "photos/2025/01/01/a.jpg"}); got != `<img src="/media/photos/2025/01/01/a.jpg" width=50>` {
		t.Fatalf("unexpected thumbnail %q", got)
	}
}

func TestWomenAdminConfiguration(t *testing.T) {
	t.Parallel()

	ma := WomenAdmin(AdminOptions{}, admin.NewValidator())

	wantFields := []string{"title", "slug", "content", "photo", "cat", "husband", "tags"}
	if strings.Join(ma.Fields, ",") != strings.Join(wantFields, ",") {
		t.Fatalf("unexpected form fields %v", ma.Fields)
	}

	var columns []string
	for _, column := range ma.ListDisplay {
		columns = append(columns, column.Name)
		if column.Link != (column.Name == "title") {
			t.Fatalf("only title should link, %s has link=%v", column.Name, column.Link)
		}
	}
	if strings.Join(columns, ",") != "title,post_photo,time_create,is_published,cat" {
		t.Fatalf("unexpected list display %v", columns)
	}
	if ma.ListDisplay[1].Header != "Photo" || ma.ListDisplay[1].SortKey != "content" {
		t.Fatalf("unexpected photo column %+v", ma.ListDisplay[1])
	}

	if ma.ListPerPage != 5 || strings.Join(ma.Ordering, ",") != "-time_create,title" {
		t.Fatalf("unexpected paging or ordering %d %v", ma.ListPerPage, ma.Ordering)
	}
	if len(ma.ListEditable) != 1 || ma.ListEditable[0].Column != "is_published" {
		t.Fatalf("expected is_published to be editable")
	}
	if sources := ma.Prepopulated["slug"]; len(sources) != 1 || sources[0] != "title" {
		t.Fatalf("expected slug prepopulated from title, got %v", sources)
	}

	var params []string
	for _, filter := range ma.ListFilters {
		params = append(params, filter.Parameter())
	}
	if strings.Join(params, ",") != "status,cat__name,is_published__exact" {
		t.Fatalf("unexpected filters %v", params)
	}

	if len(ma.Actions) != 2 || ma.Actions[0].Name != "set_published" || ma.Actions[1].Name != "set_draft" {
		t.Fatalf("unexpected actions %+v", ma.Actions)
	}
	if ma.Actions[0].Description != "Publish selected records" || ma.Actions[1].Description != "Unpublish selected records" {
		t.Fatalf("unexpected action labels")
	}
}

func TestWomenChangeListSearchAndFilters(t *testing.T) {
	t.Parallel()

	f := setupFixtures(t)
	ctx := context.Background()
	for i, title := range []string{"Anna", "Annette", "Maria", "Olga", "Sofia", "Vera"} {
		category := f.actresses
		if i%2 == 1 {
			category = f.singers
		}
		f.addWomen(t, title, strings.ToLower(title), category, day(2025, 1, i+1), StatusDraft, i == 0)
	}

	ma := WomenAdmin(AdminOptions{Repo: f.repo}, admin.NewValidator())

	cases := []struct {
		params url.Values
		want   int64
	}{
		{url.Values{"q": {"ann"}}, 2},
		{url.Values{"q": {"sing"}}, 3},
		{url.Values{"q": {"ann sing"}}, 1},
		{url.Values{"status": {"married"}}, 1},
		{url.Values{"status": {"bogus"}}, 6},
		{url.Values{"cat__name": {"Singers"}}, 3},
		{url.Values{"is_published__exact": {"1"}}, 0},
		{url.Values{"is_published__exact": {"0"}}, 6},
	}

	for _, tc := range cases {
		cl, err := ma.ChangeList(ctx, f.db, tc.params)
		if err != nil {
			t.Fatalf("%v: ChangeList returned error: %v", tc.params, err)
		}
		if cl.ResultCount != tc.want {
			t.Fatalf("%v: expected %d results, got %d", tc.params, tc.want, cl.ResultCount)
		}
	}

	cl, err := ma.ChangeList(ctx, f.db, nil)
	if err != nil {
		t.Fatalf("ChangeList returned error: %v", err)
	}
	if len(cl.Results) != 5 || cl.Results[0].Title != "Vera" {
		t.Fatalf("expected newest first on a page of 5, got %d rows starting with %q", len(cl.Results), cl.Results[0].Title)
	}
}
