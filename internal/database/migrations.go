package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shorturl-backend/internal/domain"
)

// AutoMigrate runs schema migrations for all domain models. Order matters
// because of the foreign key from histories to urls.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	models := []interface{}{
		&domain.URL{},
		&domain.AccessHistory{},
	}

	for _, model := range models {
		modelName := fmt.Sprintf("%T", model)
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
		log.Debug("model migrated", zap.String("model", modelName))
	}

	log.Info("database auto-migration completed", zap.Int("migrated_models", len(models)))
	return nil
}
