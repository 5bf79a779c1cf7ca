package women

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// schemaModels is in dependency order: Women references the other three and
// owns the women_tags join table.
var schemaModels = []interface{ TableName() string }{
	&Category{},
	&Tag{},
	&Husband{},
	&Women{},
}

// Migrate creates or updates the women tables.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	session := db.WithContext(ctx)
	for _, model := range schemaModels {
		if err := session.AutoMigrate(model); err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"component": "women.migrate",
					"table":     model.TableName(),
					"error":     err.Error(),
				}).Error("schema migration failed")
			}
			return eris.Wrapf(err, "migrating %s", model.TableName())
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "women.migrate",
			"tables":    len(schemaModels),
		}).Info("women schema is up to date")
	}
	return nil
}
