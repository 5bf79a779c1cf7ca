package women

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sitewomen/app/internal/db"
)

type fixtures struct {
	db         *gorm.DB
	repo       *GormRepository
	actresses  Category
	singers    Category
	husband    Husband
	tagOscar   Tag
	tagClassic Tag
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupFixtures(t *testing.T) *fixtures {
	t.Helper()

	path := filepath.Join(t.TempDir(), "women.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	if err := Migrate(context.Background(), gormDB, silentLogger()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, silentLogger())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	f := &fixtures{
		db:         gormDB,
		repo:       repo,
		actresses:  Category{Name: "Actresses", Slug: "actresses"},
		singers:    Category{Name: "Singers", Slug: "singers"},
		husband:    Husband{Name: "Alexei Karenin"},
		tagOscar:   Tag{Tag: "Oscar", Slug: "oscar"},
		tagClassic: Tag{Tag: "Classic", Slug: "classic"},
	}
	for _, value := range []any{&f.actresses, &f.singers, &f.husband, &f.tagOscar, &f.tagClassic} {
		if err := gormDB.Create(value).Error; err != nil {
			t.Fatalf("creating fixture %T: %v", value, err)
		}
	}

	return f
}

func (f *fixtures) addWomen(t *testing.T, title, slug string, category Category, created time.Time, status Status, married bool, tags ...Tag) *Women {
	t.Helper()

	entry := &Women{
		Title:       title,
		Slug:        slug,
		Content:     title + " biography",
		TimeCreate:  created,
		CategoryID:  category.ID,
		IsPublished: status,
		Tags:        tags,
	}
	if married {
		entry.HusbandID = &f.husband.ID
	}

	if err := f.db.Create(entry).Error; err != nil {
		t.Fatalf("creating women %s: %v", slug, err)
	}
	return entry
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}
