package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

// CatalogService serves tags and ingredients. Reads are public; creation is
// restricted to administrators.
type CatalogService struct {
	db        *gorm.DB
	validator *validation.Validator
	log       *zap.Logger
}

func NewCatalogService(db *gorm.DB, v *validation.Validator, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, validator: v, log: log}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	out := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, toTagResponse(&tags[i]))
	}
	return out, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "tag")
	}
	resp := toTagResponse(&tag)
	return &resp, nil
}

func (s *CatalogService) CreateTag(ctx context.Context, viewer types.Viewer, req *types.TagCreateRequest) (*types.TagResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: strings.TrimSpace(req.Name), Slug: req.Slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Validation("a tag with that name or slug already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	s.log.Info("tag created", zap.Uint("tag_id", tag.ID), zap.String("slug", tag.Slug))
	resp := toTagResponse(&tag)
	return &resp, nil
}

// ListIngredients returns the catalog ordered by name, optionally narrowed to
// names starting with namePrefix, compared case-insensitively.
func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]types.IngredientResponse, error) {
	q := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if prefix := strings.TrimSpace(namePrefix); prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Order("name").Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	out := make([]types.IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		out = append(out, toIngredientResponse(&ingredients[i]))
	}
	return out, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, notFoundOr(err, "ingredient")
	}
	resp := toIngredientResponse(&ingredient)
	return &resp, nil
}

func (s *CatalogService) CreateIngredient(ctx context.Context, viewer types.Viewer, req *types.IngredientCreateRequest) (*types.IngredientResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	ingredient := models.Ingredient{
		Name:            strings.TrimSpace(req.Name),
		MeasurementUnit: strings.TrimSpace(req.MeasurementUnit),
	}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	s.log.Info("ingredient created", zap.Uint("ingredient_id", ingredient.ID), zap.String("name", ingredient.Name))
	resp := toIngredientResponse(&ingredient)
	return &resp, nil
}

func requireAdmin(viewer types.Viewer) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	if !viewer.IsAdmin() {
		return apperrors.ErrForbidden
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
