package women

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListOptions narrows the published listing. Zero values mean "no restriction".
type ListOptions struct {
	CategoryID   uint
	CategorySlug string
	TagSlug      string
	Year         int
}

// Repository defines persistence operations for the public site.
type Repository interface {
	ListPublished(ctx context.Context, opts ListOptions) ([]Women, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*Women, error)
	GetCategoryByID(ctx context.Context, id uint) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListTags(ctx context.Context) ([]Tag, error)
	ListHusbands(ctx context.Context) ([]Husband, error)
	GetHusbandByID(ctx context.Context, id uint) (*Husband, error)
	TagsByIDs(ctx context.Context, ids []uint) ([]Tag, error)
	ValueTaken(ctx context.Context, table, column, value string, exceptID uint) (bool, error)
}

// GormRepository persists women, categories, tags and husbands with Gorm.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// uniqueColumns lists the columns ValueTaken may be asked about.
var uniqueColumns = map[string]map[string]bool{
	Women{}.TableName():    {"slug": true},
	Category{}.TableName(): {"slug": true, "name": true},
	Tag{}.TableName():      {"slug": true},
}

// PublishedOrder is the public ordering: newest first, then title.
const PublishedOrder = "time_create DESC, title ASC"

// ListPublished returns published entries matching opts, newest first.
func (r *GormRepository) ListPublished(ctx context.Context, opts ListOptions) ([]Women, error) {
	query := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Tags").
		Where("is_published = ?", StatusPublished)

	if opts.CategoryID != 0 {
		query = query.Where("category_id = ?", opts.CategoryID)
	}
	if slug := strings.TrimSpace(opts.CategorySlug); slug != "" {
		query = query.Where("category_id IN (?)", r.db.Model(&Category{}).Select("id").Where("slug = ?", slug))
	}
	if slug := strings.TrimSpace(opts.TagSlug); slug != "" {
		query = query.Where("id IN (?)", r.db.Table("women_tags").
			Select("women_tags.women_id").
			Joins("JOIN tags ON tags.id = women_tags.tag_id").
			Where("tags.slug = ?", slug))
	}
	if opts.Year != 0 {
		start := time.Date(opts.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("time_create >= ? AND time_create < ?", start, start.AddDate(1, 0, 0))
	}

	var entries []Women
	if err := query.Order(PublishedOrder).Find(&entries).Error; err != nil {
		r.logError(logrus.Fields{"options": opts}, err, "listing published women")
		return nil, eris.Wrap(err, "listing published women")
	}

	return entries, nil
}

// GetPublishedBySlug returns the published entry for slug or nil when not found.
func (r *GormRepository) GetPublishedBySlug(ctx context.Context, slug string) (*Women, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var entry Women
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Husband").
		Preload("Tags").
		First(&entry, "slug = ? AND is_published = ?", trimmed, StatusPublished).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching women by slug")
		return nil, eris.Wrapf(err, "fetching women by slug: %s", trimmed)
	}

	return &entry, nil
}

// GetCategoryByID returns the category or nil when not found.
func (r *GormRepository) GetCategoryByID(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"category_id": id}, err, "fetching category by id")
		return nil, eris.Wrapf(err, "fetching category by id: %d", id)
	}

	return &category, nil
}

// GetCategoryBySlug returns the category or nil when not found.
func (r *GormRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var category Category
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", trimmed).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching category by slug")
		return nil, eris.Wrapf(err, "fetching category by slug: %s", trimmed)
	}

	return &category, nil
}

// ListCategories returns every category ordered by name.
func (r *GormRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		r.logError(nil, err, "listing categories")
		return nil, eris.Wrap(err, "listing categories")
	}
	return categories, nil
}

// ListTags returns every tag ordered by name.
func (r *GormRepository) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := r.db.WithContext(ctx).Order("tag ASC").Find(&tags).Error; err != nil {
		r.logError(nil, err, "listing tags")
		return nil, eris.Wrap(err, "listing tags")
	}
	return tags, nil
}

// ListHusbands returns every husband ordered by name.
func (r *GormRepository) ListHusbands(ctx context.Context) ([]Husband, error) {
	var husbands []Husband
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&husbands).Error; err != nil {
		r.logError(nil, err, "listing husbands")
		return nil, eris.Wrap(err, "listing husbands")
	}
	return husbands, nil
}

// GetHusbandByID returns the husband or nil when not found.
func (r *GormRepository) GetHusbandByID(ctx context.Context, id uint) (*Husband, error) {
	var husband Husband
	if err := r.db.WithContext(ctx).First(&husband, id).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"husband_id": id}, err, "fetching husband by id")
		return nil, eris.Wrapf(err, "fetching husband by id: %d", id)
	}
	return &husband, nil
}

// TagsByIDs returns the tags among ids that exist.
func (r *GormRepository) TagsByIDs(ctx context.Context, ids []uint) ([]Tag, error) {
	if len(ids) == 0 {
		return []Tag{}, nil
	}

	var tags []Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("tag ASC").Find(&tags).Error; err != nil {
		r.logError(logrus.Fields{"tag_ids": ids}, err, "fetching tags by id")
		return nil, eris.Wrap(err, "fetching tags by id")
	}
	return tags, nil
}

// ValueTaken reports whether another row of table already holds value in column.
func (r *GormRepository) ValueTaken(ctx context.Context, table, column, value string, exceptID uint) (bool, error) {
	if !uniqueColumns[table][column] {
		return false, eris.Errorf("%s.%s is not a unique column", table, column)
	}

	var count int64
	query := r.db.WithContext(ctx).Table(table).Where(column+" = ?", value)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"table": table, "column": column}, err, "checking uniqueness")
		return false, eris.Wrapf(err, "checking uniqueness of %s.%s", table, column)
	}

	return count > 0, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
