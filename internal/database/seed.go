package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodgram/backend/internal/models"
)

// LoadJSON decodes the JSON file at path into dst.
func LoadJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// SeedCatalog inserts the tags and ingredients that are not present yet and
// reports how many rows of each were added. Running it twice adds nothing.
func SeedCatalog(ctx context.Context, db *gorm.DB, tags []models.Tag, ingredients []models.Ingredient, log *zap.Logger) (addedTags, addedIngredients int64, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tags {
			tag := models.Tag{Name: tags[i].Name, Slug: tags[i].Slug}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
			if res.Error != nil {
				return fmt.Errorf("failed to seed tag %s: %w", tag.Slug, res.Error)
			}
			addedTags += res.RowsAffected
		}

		for i := range ingredients {
			ingredient := models.Ingredient{
				Name:            ingredients[i].Name,
				MeasurementUnit: ingredients[i].MeasurementUnit,
			}
			// names repeat across units, so the pair identifies an entry
			res := tx.Where("name = ? AND measurement_unit = ?", ingredient.Name, ingredient.MeasurementUnit).
				FirstOrCreate(&ingredient)
			if res.Error != nil {
				return fmt.Errorf("failed to seed ingredient %s: %w", ingredient.Name, res.Error)
			}
			addedIngredients += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	log.Info("catalog seeded",
		zap.Int64("tags_added", addedTags),
		zap.Int64("ingredients_added", addedIngredients))
	return addedTags, addedIngredients, nil
}
