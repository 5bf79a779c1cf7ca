package women

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// Status is the publication state of a Women entry.
type Status int8

const (
	StatusDraft     Status = 0
	StatusPublished Status = 1
)

// Statuses lists every valid publication state in display order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPublished}
}

// Label returns the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusPublished:
		return "Published"
	case StatusDraft:
		return "Draft"
	default:
		return "Unknown"
	}
}

// ParseStatus accepts the numeric form used in forms and query strings.
func ParseStatus(raw string) (Status, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, eris.Wrapf(err, "parsing status %q", raw)
	}

	status := Status(value)
	if status != StatusDraft && status != StatusPublished {
		return 0, eris.Errorf("unknown status %d", value)
	}

	return status, nil
}

// Category groups Women entries.
type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;uniqueIndex:idx_categories_name;not null"`
	Slug string `gorm:"size:255;uniqueIndex:idx_categories_slug;not null"`
}

func (Category) TableName() string {
	return "categories"
}

// Tag labels Women entries across categories.
type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Tag  string `gorm:"size:100;not null"`
	Slug string `gorm:"size:255;uniqueIndex:idx_tags_slug;not null"`
}

func (Tag) TableName() string {
	return "tags"
}

// Husband is the optional spouse referenced by a Women entry.
type Husband struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null"`
	Age  *int
}

func (Husband) TableName() string {
	return "husbands"
}

// Women is a published or draft profile.
type Women struct {
	ID          uint      `gorm:"primaryKey"`
	Title       string    `gorm:"size:255;not null"`
	Slug        string    `gorm:"size:255;uniqueIndex:idx_women_slug;not null"`
	Content     string    `gorm:"type:text"`
	Photo       string    `gorm:"size:255"`
	TimeCreate  time.Time `gorm:"index:idx_women_time_create;not null"`
	TimeUpdate  time.Time `gorm:"not null"`
	IsPublished Status    `gorm:"not null;default:0;index:idx_women_is_published"`
	CategoryID  uint      `gorm:"not null;index:idx_women_category"`
	Category    Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	HusbandID   *uint     `gorm:"index:idx_women_husband"`
	Husband     *Husband  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Tags        []Tag     `gorm:"many2many:women_tags"`
}

func (Women) TableName() string {
	return "women"
}

// BeforeSave keeps timestamps in UTC so that SQLite's textual comparison of
// stored times matches chronological order.
func (w *Women) BeforeSave(_ *gorm.DB) error {
	now := time.Now().UTC()
	if w.TimeCreate.IsZero() {
		w.TimeCreate = now
	} else {
		w.TimeCreate = w.TimeCreate.UTC()
	}
	w.TimeUpdate = now
	return nil
}

// Married reports whether a spouse is referenced.
func (w *Women) Married() bool {
	return w.HusbandID != nil
}

// TagIDs returns the ids of the attached tags.
func (w *Women) TagIDs() []uint {
	ids := make([]uint, 0, len(w.Tags))
	for _, tag := range w.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}
