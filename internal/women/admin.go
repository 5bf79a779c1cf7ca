package women

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"sitewomen/app/internal/admin"
	"sitewomen/app/internal/media"
)

// MarriedFilter splits the changelist by whether a husband is referenced.
type MarriedFilter struct{}

var _ admin.ListFilter = MarriedFilter{}

func (MarriedFilter) Title() string     { return "Women status" }
func (MarriedFilter) Parameter() string { return "status" }

func (MarriedFilter) Lookups(context.Context, *gorm.DB) ([]admin.Lookup, error) {
	return []admin.Lookup{
		{Value: "married", Label: "Married"},
		{Value: "single", Label: "Single"},
	}, nil
}

func (MarriedFilter) Queryset(query *gorm.DB, value string) *gorm.DB {
	switch value {
	case "married":
		return query.Where("husband_id IS NOT NULL")
	case "single":
		return query.Where("husband_id IS NULL")
	default:
		return query
	}
}

// SetStatus moves every row of selection to status in a single UPDATE and
// returns the number of rows it matched.
func SetStatus(selection *gorm.DB, status Status) (int64, error) {
	if status != StatusDraft && status != StatusPublished {
		return 0, eris.Errorf("unknown status %d", status)
	}

	result := selection.Updates(map[string]any{
		"is_published": status,
		"time_update":  time.Now().UTC(),
	})
	if result.Error != nil {
		return 0, eris.Wrap(result.Error, "updating publication status")
	}
	return result.RowsAffected, nil
}

func publishAction(_ context.Context, selection *gorm.DB) (admin.Message, error) {
	count, err := SetStatus(selection, StatusPublished)
	if err != nil {
		return admin.Message{}, err
	}
	return admin.Message{Level: admin.LevelInfo, Text: fmt.Sprintf("Changed %d records.", count)}, nil
}

func draftAction(_ context.Context, selection *gorm.DB) (admin.Message, error) {
	count, err := SetStatus(selection, StatusDraft)
	if err != nil {
		return admin.Message{}, err
	}
	return admin.Message{Level: admin.LevelWarning, Text: fmt.Sprintf("%d records unpublished!", count)}, nil
}

// PostPhoto renders the photo thumbnail column.
func PostPhoto(entry *Women, photoURL func(string) string) templ.Component {
	if entry.Photo == "" || photoURL == nil {
		return admin.Text("No photo")
	}
	return templ.Raw(fmt.Sprintf(`<img src="%s" width=50>`, templ.EscapeString(photoURL(entry.Photo))))
}

func statusLookups() []admin.Lookup {
	lookups := make([]admin.Lookup, 0, 2)
	for _, status := range Statuses() {
		lookups = append(lookups, admin.Lookup{Value: strconv.Itoa(int(status)), Label: status.Label()})
	}
	return lookups
}

func parseStatusValue(raw string) (any, error) {
	return ParseStatus(raw)
}

const adminTimeLayout = "Jan. 2, 2006, 15:04"

// AdminOptions holds what the women back office needs.
type AdminOptions struct {
	Repo    Repository
	Media   media.Storage
	Service Service
}

// RegisterAdmin mounts the women, category, tag and husband admins.
func RegisterAdmin(site *admin.Site, opts AdminOptions) error {
	if opts.Repo == nil {
		return eris.New("women repository is required")
	}

	validate := admin.NewValidator()

	if err := admin.Register(site, WomenAdmin(opts, validate)); err != nil {
		return err
	}
	if err := admin.Register(site, CategoryAdmin(opts, validate)); err != nil {
		return err
	}
	if err := admin.Register(site, TagAdmin(opts, validate)); err != nil {
		return err
	}
	return admin.Register(site, HusbandAdmin(opts, validate))
}

// WomenAdmin is the back-office configuration of Women entries.
func WomenAdmin(opts AdminOptions, validate *validator.Validate) *admin.ModelAdmin[Women] {
	var photoURL func(string) string
	if opts.Media != nil {
		photoURL = opts.Media.URL
	}

	return &admin.ModelAdmin[Women]{
		Name:              "women",
		VerboseName:       "women",
		VerboseNamePlural: "women",
		PK:                func(w *Women) uint { return w.ID },
		String:            func(w *Women) string { return w.Title },

		Fields:       []string{"title", "slug", "content", "photo", "cat", "husband", "tags"},
		Prepopulated: map[string][]string{"slug": {"title"}},
		Form:         &womenForm{repo: opts.Repo, media: opts.Media, validate: validate},

		ListDisplay: []admin.Column[Women]{
			{Name: "title", Header: "Title", SortKey: "title", Link: true, Render: func(_ context.Context, w *Women) templ.Component {
				return admin.Text(w.Title)
			}},
			{Name: "post_photo", Header: "Photo", SortKey: "content", Render: func(_ context.Context, w *Women) templ.Component {
				return PostPhoto(w, photoURL)
			}},
			{Name: "time_create", Header: "Time create", SortKey: "time_create", Render: func(_ context.Context, w *Women) templ.Component {
				return admin.Text(w.TimeCreate.UTC().Format(adminTimeLayout))
			}},
			{Name: "is_published", Header: "Status", SortKey: "is_published", Render: func(_ context.Context, w *Women) templ.Component {
				return admin.Text(w.IsPublished.Label())
			}},
			{Name: "cat", Header: "Category", SortKey: "category_id", Render: func(_ context.Context, w *Women) templ.Component {
				return admin.Text(w.Category.Name)
			}},
		},
		ListEditable: []admin.Editable[Women]{{
			Column:  "is_published",
			Field:   "is_published",
			Choices: statusLookups(),
			Value:   func(w *Women) string { return strconv.Itoa(int(w.IsPublished)) },
			Parse:   parseStatusValue,
		}},
		ListPerPage: 5,
		Ordering:    []string{"-time_create", "title"},
		SearchFields: []admin.SearchField{
			admin.StartsWith("title"),
			admin.RelatedContains("category_id", Category{}.TableName(), "name"),
		},
		ListFilters: []admin.ListFilter{
			MarriedFilter{},
			admin.NewRelatedFilter("category", "cat__name", "category_id", Category{}.TableName(), "name"),
			admin.NewChoicesFilter("is published", "is_published__exact", "is_published", statusLookups(), parseStatusValue),
		},
		Actions: []admin.Action[Women]{
			{Name: "set_published", Description: "Publish selected records", Run: publishAction},
			{Name: "set_draft", Description: "Unpublish selected records", Run: draftAction},
		},
		Preload:       []string{"Category", "Husband", "Tags"},
		UpdatedColumn: "time_update",
	}
}

// CategoryAdmin lists categories by id and name; saving refreshes the public menu.
func CategoryAdmin(opts AdminOptions, validate *validator.Validate) *admin.ModelAdmin[Category] {
	ma := &admin.ModelAdmin[Category]{
		Name:              "categories",
		VerboseName:       "category",
		VerboseNamePlural: "categories",
		PK:                func(c *Category) uint { return c.ID },
		String:            func(c *Category) string { return c.Name },

		Fields:       []string{"name", "slug"},
		Prepopulated: map[string][]string{"slug": {"name"}},
		Form:         &categoryForm{repo: opts.Repo, validate: validate},

		ListDisplay: []admin.Column[Category]{
			{Name: "id", Header: "ID", SortKey: "id", Link: true, Render: func(_ context.Context, c *Category) templ.Component {
				return admin.Text(strconv.FormatUint(uint64(c.ID), 10))
			}},
			{Name: "name", Header: "Name", SortKey: "name", Link: true, Render: func(_ context.Context, c *Category) templ.Component {
				return admin.Text(c.Name)
			}},
		},
		Ordering: []string{"id"},
	}

	if opts.Service != nil {
		ma.OnChange = func(context.Context, *Category) { opts.Service.InvalidateCategories() }
	}
	return ma
}

// TagAdmin manages tags.
func TagAdmin(opts AdminOptions, validate *validator.Validate) *admin.ModelAdmin[Tag] {
	return &admin.ModelAdmin[Tag]{
		Name:              "tags",
		VerboseName:       "tag",
		VerboseNamePlural: "tags",
		PK:                func(t *Tag) uint { return t.ID },
		String:            func(t *Tag) string { return t.Tag },

		Fields:       []string{"tag", "slug"},
		Prepopulated: map[string][]string{"slug": {"tag"}},
		Form:         &tagForm{repo: opts.Repo, validate: validate},

		ListDisplay: []admin.Column[Tag]{
			{Name: "tag", Header: "Tag", SortKey: "tag", Render: func(_ context.Context, t *Tag) templ.Component {
				return admin.Text(t.Tag)
			}},
			{Name: "slug", Header: "Slug", SortKey: "slug", Render: func(_ context.Context, t *Tag) templ.Component {
				return admin.Text(t.Slug)
			}},
		},
		Ordering:     []string{"tag"},
		SearchFields: []admin.SearchField{admin.Contains("tag")},
	}
}

// HusbandAdmin manages husbands.
func HusbandAdmin(_ AdminOptions, validate *validator.Validate) *admin.ModelAdmin[Husband] {
	return &admin.ModelAdmin[Husband]{
		Name:              "husbands",
		VerboseName:       "husband",
		VerboseNamePlural: "husbands",
		PK:                func(h *Husband) uint { return h.ID },
		String:            func(h *Husband) string { return h.Name },

		Fields: []string{"name", "age"},
		Form:   &husbandForm{validate: validate},

		ListDisplay: []admin.Column[Husband]{
			{Name: "id", Header: "ID", SortKey: "id", Render: func(_ context.Context, h *Husband) templ.Component {
				return admin.Text(strconv.FormatUint(uint64(h.ID), 10))
			}},
			{Name: "name", Header: "Name", SortKey: "name", Link: true, Render: func(_ context.Context, h *Husband) templ.Component {
				return admin.Text(h.Name)
			}},
			{Name: "age", Header: "Age", SortKey: "age", Render: func(_ context.Context, h *Husband) templ.Component {
				if h.Age == nil {
					return admin.Text("-")
				}
				return admin.Text(strconv.Itoa(*h.Age))
			}},
		},
		Ordering:     []string{"name"},
		SearchFields: []admin.SearchField{admin.Contains("name")},
	}
}
