package women

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sitewomen/app/internal/admin"
	"sitewomen/app/internal/media"
)

const (
	invalidChoiceMessage = "Select a valid choice. That choice is not one of the available choices."
	invalidImageMessage  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	wholeNumberMessage   = "Enter a whole number."
)

type womenInput struct {
	Title      string `form:"title" validate:"required,max=255"`
	Slug       string `form:"slug" validate:"required,max=255,slug"`
	Content    string `form:"content"`
	CategoryID uint   `form:"cat" validate:"required"`
}

type womenForm struct {
	repo     Repository
	media    media.Storage
	validate *validator.Validate
}

var _ admin.Form[Women] = (*womenForm)(nil)

func (f *womenForm) Fields(ctx context.Context, item *Women) ([]admin.FormField, error) {
	categories, err := f.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	husbands, err := f.repo.ListHusbands(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := f.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	categoryChoices := make([]admin.Lookup, 0, len(categories))
	for _, category := range categories {
		categoryChoices = append(categoryChoices, admin.Lookup{Value: idString(category.ID), Label: category.Name})
	}
	husbandChoices := make([]admin.Lookup, 0, len(husbands))
	for _, husband := range husbands {
		husbandChoices = append(husbandChoices, admin.Lookup{Value: idString(husband.ID), Label: husband.Name})
	}
	tagChoices := make([]admin.Lookup, 0, len(tags))
	for _, tag := range tags {
		tagChoices = append(tagChoices, admin.Lookup{Value: idString(tag.ID), Label: tag.Tag})
	}

	var husbandValue string
	if item.HusbandID != nil {
		husbandValue = idString(*item.HusbandID)
	}
	var categoryValue string
	if item.CategoryID != 0 {
		categoryValue = idString(item.CategoryID)
	}
	tagValues := make([]string, 0, len(item.Tags))
	for _, id := range item.TagIDs() {
		tagValues = append(tagValues, idString(id))
	}

	return []admin.FormField{
		{Name: "title", Label: "Title", Value: item.Title, Required: true},
		{Name: "slug", Label: "Slug", Value: item.Slug, Required: true},
		{Name: "content", Label: "Article text", Widget: admin.WidgetTextarea, Value: item.Content},
		{Name: "photo", Label: "Photo", Widget: admin.WidgetFile, Preview: f.photoPreview(item)},
		{Name: "cat", Label: "Category", Widget: admin.WidgetSelect, Value: categoryValue, Choices: categoryChoices, Required: true},
		{Name: "husband", Label: "Husband", Widget: admin.WidgetSelect, Value: husbandValue, Choices: husbandChoices},
		{Name: "tags", Label: "Tags", Widget: admin.WidgetSelectMultiple, Values: tagValues, Choices: tagChoices},
	}, nil
}

// photoPreview shows the stored photo with a clear checkbox. It is rendered below
// the file input on the change form.
func (f *womenForm) photoPreview(item *Women) templ.Component {
	if item.Photo == "" || f.media == nil {
		return admin.Text("No photo")
	}

	src := templ.EscapeString(f.media.URL(item.Photo))
	return templ.Raw(`<img src="` + src + `" width=50> <a href="` + src + `">` + templ.EscapeString(item.Photo) + `</a>` +
		` <label><input type="checkbox" name="photo-clear"> Clear</label>`)
}

func (f *womenForm) Bind(ctx context.Context, r *http.Request, item *Women) (admin.FieldErrors, error) {
	item.Title = strings.TrimSpace(r.PostForm.Get("title"))
	item.Slug = strings.TrimSpace(r.PostForm.Get("slug"))
	item.Content = r.PostForm.Get("content")

	errs := admin.FieldErrors{}

	if id, ok := parseID(r.PostForm.Get("cat")); ok {
		item.CategoryID = id
	} else {
		item.CategoryID = 0
		if r.PostForm.Get("cat") != "" {
			errs.Add("cat", invalidChoiceMessage)
		}
	}

	item.HusbandID, item.Husband = nil, nil
	if raw := r.PostForm.Get("husband"); raw != "" {
		if id, ok := parseID(raw); ok {
			item.HusbandID = &id
		} else {
			errs.Add("husband", invalidChoiceMessage)
		}
	}

	tagIDs := make([]uint, 0, len(r.PostForm["tags"]))
	for _, raw := range r.PostForm["tags"] {
		id, ok := parseID(raw)
		if !ok {
			errs.Add("tags", invalidChoiceMessage)
			continue
		}
		tagIDs = append(tagIDs, id)
	}

	validationErrs, err := admin.Validate(f.validate, womenInput{
		Title:      item.Title,
		Slug:       item.Slug,
		Content:    item.Content,
		CategoryID: item.CategoryID,
	})
	if err != nil {
		return nil, err
	}
	for field, messages := range validationErrs {
		if len(errs[field]) == 0 {
			errs[field] = append(errs[field], messages...)
		}
	}

	if item.CategoryID != 0 && len(errs["cat"]) == 0 {
		category, err := f.repo.GetCategoryByID(ctx, item.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			errs.Add("cat", invalidChoiceMessage)
		} else {
			item.Category = *category
		}
	}

	if item.HusbandID != nil {
		husband, err := f.repo.GetHusbandByID(ctx, *item.HusbandID)
		if err != nil {
			return nil, err
		}
		if husband == nil {
			errs.Add("husband", invalidChoiceMessage)
		} else {
			item.Husband = husband
		}
	}

	tags, err := f.repo.TagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueIDs(tagIDs)) {
		errs.Add("tags", invalidChoiceMessage)
	}
	item.Tags = tags

	if len(errs["slug"]) == 0 {
		taken, err := f.repo.ValueTaken(ctx, Women{}.TableName(), "slug", item.Slug, item.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("slug", "Women with this Slug already exists.")
		}
	}

	if r.PostForm.Get("photo-clear") != "" {
		item.Photo = ""
	}

	// The upload is stored last so a rejected form leaves no file behind.
	if len(errs) == 0 && f.media != nil && r.MultipartForm != nil {
		if files := r.MultipartForm.File["photo"]; len(files) > 0 {
			name, err := f.media.Save(ctx, files[0])
			switch {
			case eris.Is(err, media.ErrUnsupportedType):
				errs.Add("photo", invalidImageMessage)
			case err != nil:
				return nil, err
			default:
				item.Photo = name
			}
		}
	}

	return errs, nil
}

func (f *womenForm) Save(ctx context.Context, tx *gorm.DB, item *Women, _ bool) error {
	tags := item.Tags

	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(item).Error; err != nil {
		return eris.Wrapf(err, "saving women %s", item.Slug)
	}

	association := tx.WithContext(ctx).Model(item).Association("Tags")
	if len(tags) == 0 {
		if err := association.Clear(); err != nil {
			return eris.Wrapf(err, "clearing tags of women %s", item.Slug)
		}
		return nil
	}
	if err := association.Replace(tags); err != nil {
		return eris.Wrapf(err, "replacing tags of women %s", item.Slug)
	}
	return nil
}

type categoryInput struct {
	Name string `form:"name" validate:"required,max=100"`
	Slug string `form:"slug" validate:"required,max=255,slug"`
}

type categoryForm struct {
	repo     Repository
	validate *validator.Validate
}

var _ admin.Form[Category] = (*categoryForm)(nil)

func (f *categoryForm) Fields(_ context.Context, item *Category) ([]admin.FormField, error) {
	return []admin.FormField{
		{Name: "name", Label: "Category", Value: item.Name, Required: true},
		{Name: "slug", Label: "Slug", Value: item.Slug, Required: true},
	}, nil
}

func (f *categoryForm) Bind(ctx context.Context, r *http.Request, item *Category) (admin.FieldErrors, error) {
	item.Name = strings.TrimSpace(r.PostForm.Get("name"))
	item.Slug = strings.TrimSpace(r.PostForm.Get("slug"))

	errs, err := admin.Validate(f.validate, categoryInput{Name: item.Name, Slug: item.Slug})
	if err != nil {
		return nil, err
	}

	if err := uniqueField(ctx, f.repo, errs, Category{}.TableName(), "name", item.Name, item.ID, "Category with this Name already exists."); err != nil {
		return nil, err
	}
	if err := uniqueField(ctx, f.repo, errs, Category{}.TableName(), "slug", item.Slug, item.ID, "Category with this Slug already exists."); err != nil {
		return nil, err
	}

	return errs, nil
}

func (f *categoryForm) Save(ctx context.Context, tx *gorm.DB, item *Category, _ bool) error {
	if err := tx.WithContext(ctx).Save(item).Error; err != nil {
		return eris.Wrapf(err, "saving category %s", item.Slug)
	}
	return nil
}

type tagInput struct {
	Tag  string `form:"tag" validate:"required,max=100"`
	Slug string `form:"slug" validate:"required,max=255,slug"`
}

type tagForm struct {
	repo     Repository
	validate *validator.Validate
}

var _ admin.Form[Tag] = (*tagForm)(nil)

func (f *tagForm) Fields(_ context.Context, item *Tag) ([]admin.FormField, error) {
	return []admin.FormField{
		{Name: "tag", Label: "Tag", Value: item.Tag, Required: true},
		{Name: "slug", Label: "Slug", Value: item.Slug, Required: true},
	}, nil
}

func (f *tagForm) Bind(ctx context.Context, r *http.Request, item *Tag) (admin.FieldErrors, error) {
	item.Tag = strings.TrimSpace(r.PostForm.Get("tag"))
	item.Slug = strings.TrimSpace(r.PostForm.Get("slug"))

	errs, err := admin.Validate(f.validate, tagInput{Tag: item.Tag, Slug: item.Slug})
	if err != nil {
		return nil, err
	}
	if err := uniqueField(ctx, f.repo, errs, Tag{}.TableName(), "slug", item.Slug, item.ID, "Tag with this Slug already exists."); err != nil {
		return nil, err
	}
	return errs, nil
}

func (f *tagForm) Save(ctx context.Context, tx *gorm.DB, item *Tag, _ bool) error {
	if err := tx.WithContext(ctx).Save(item).Error; err != nil {
		return eris.Wrapf(err, "saving tag %s", item.Slug)
	}
	return nil
}

type husbandInput struct {
	Name string `form:"name" validate:"required,max=100"`
	Age  *int   `form:"age" validate:"omitempty,gte=0,lte=150"`
}

type husbandForm struct {
	validate *validator.Validate
}

var _ admin.Form[Husband] = (*husbandForm)(nil)

func (f *husbandForm) Fields(_ context.Context, item *Husband) ([]admin.FormField, error) {
	var age string
	if item.Age != nil {
		age = strconv.Itoa(*item.Age)
	}
	return []admin.FormField{
		{Name: "name", Label: "Name", Value: item.Name, Required: true},
		{Name: "age", Label: "Age", Widget: admin.WidgetNumber, Value: age},
	}, nil
}

func (f *husbandForm) Bind(_ context.Context, r *http.Request, item *Husband) (admin.FieldErrors, error) {
	item.Name = strings.TrimSpace(r.PostForm.Get("name"))

	errs := admin.FieldErrors{}
	item.Age = nil
	if raw := strings.TrimSpace(r.PostForm.Get("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add("age", wholeNumberMessage)
		} else {
			item.Age = &age
		}
	}

	validationErrs, err := admin.Validate(f.validate, husbandInput{Name: item.Name, Age: item.Age})
	if err != nil {
		return nil, err
	}
	for field, messages := range validationErrs {
		errs[field] = append(errs[field], messages...)
	}
	return errs, nil
}

func (f *husbandForm) Save(ctx context.Context, tx *gorm.DB, item *Husband, _ bool) error {
	if err := tx.WithContext(ctx).Save(item).Error; err != nil {
		return eris.Wrapf(err, "saving husband %s", item.Name)
	}
	return nil
}

func uniqueField(ctx context.Context, repo Repository, errs admin.FieldErrors, table, column, value string, exceptID uint, message string) error {
	if len(errs[column]) > 0 || value == "" {
		return nil
	}
	taken, err := repo.ValueTaken(ctx, table, column, value, exceptID)
	if err != nil {
		return err
	}
	if taken {
		errs.Add(column, message)
	}
	return nil
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
