package service

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/storage"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 32000
	MinAmount      = 1
	MaxAmount      = 32000

	recipeImageFolder = "recipes"

	shortCodeLength   = 8
	shortCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortCodeAttempts = 5
)

type RecipeService struct {
	db        *gorm.DB
	images    storage.ImageStore
	validator *validation.Validator
	log       *zap.Logger
	baseURL   string
}

func NewRecipeService(db *gorm.DB, images storage.ImageStore, v *validation.Validator, log *zap.Logger, baseURL string) *RecipeService {
	return &RecipeService{
		db:        db,
		images:    images,
		validator: v,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func validateCookingTime(minutes int) error {
	if minutes < MinCookingTime || minutes > MaxCookingTime {
		return apperrors.FieldError("cooking_time",
			fmt.Sprintf("must be between %d and %d", MinCookingTime, MaxCookingTime))
	}
	return nil
}

func validateIngredientLines(lines []types.IngredientLine) error {
	if len(lines) == 0 {
		return apperrors.FieldError("ingredients", "at least one ingredient is required")
	}
	seen := make(map[uint]bool, len(lines))
	for _, line := range lines {
		if line.ID == 0 {
			return apperrors.FieldError("ingredients", "ingredient id is required")
		}
		if seen[line.ID] {
			return apperrors.FieldError("ingredients",
				fmt.Sprintf("ingredient %d is listed more than once", line.ID))
		}
		seen[line.ID] = true
		if line.Amount < MinAmount || line.Amount > MaxAmount {
			return apperrors.FieldError("ingredients",
				fmt.Sprintf("amount must be between %d and %d", MinAmount, MaxAmount))
		}
	}
	return nil
}

func validateTagIDs(ids []uint) error {
	if len(ids) == 0 {
		return apperrors.FieldError("tags", "at least one tag is required")
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperrors.FieldError("tags", fmt.Sprintf("tag %d is listed more than once", id))
		}
		seen[id] = true
	}
	return nil
}

func lineIDs(lines []types.IngredientLine) []uint {
	ids := make([]uint, len(lines))
	for i, line := range lines {
		ids[i] = line.ID
	}
	return ids
}

// ensureExist fails unless every id (already deduplicated) names a row of model.
func ensureExist(ctx context.Context, db *gorm.DB, model any, ids []uint, field string) error {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return apperrors.FieldError(field, "contains unknown ids")
	}
	return nil
}

func decodeImage(field, dataURI string) (*storage.Image, error) {
	img, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return nil, apperrors.FieldError(field, err.Error())
	}
	return img, nil
}

func newShortCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code, err := gonanoid.Generate(shortCodeAlphabet, shortCodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		var count int64
		if err := tx.WithContext(ctx).Model(&models.Recipe{}).Where("short_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to find a free short code after %d attempts", shortCodeAttempts)
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeTag, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&rows).Error
}

// replaceIngredients swaps the recipe's lines for the given ones. The old
// lines are deleted rather than diffed.
func replaceIngredients(tx *gorm.DB, recipeID uint, lines []types.IngredientLine) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: line.ID, Amount: line.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.FieldError("ingredients", "an ingredient is listed more than once")
		}
		return err
	}
	return nil
}

// CreateRecipe validates and stores a recipe with its tags and ingredient lines
// in one transaction.
func (s *RecipeService) CreateRecipe(ctx context.Context, viewer types.Viewer, req *types.RecipeCreateRequest) (*types.RecipeResponse, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := validateCookingTime(req.CookingTime); err != nil {
		return nil, err
	}
	if err := validateIngredientLines(req.Ingredients); err != nil {
		return nil, err
	}
	if err := validateTagIDs(req.Tags); err != nil {
		return nil, err
	}
	img, err := decodeImage("image", req.Image)
	if err != nil {
		return nil, err
	}
	if err := ensureExist(ctx, s.db, &models.Tag{}, req.Tags, "tags"); err != nil {
		return nil, err
	}
	if err := ensureExist(ctx, s.db, &models.Ingredient{}, lineIDs(req.Ingredients), "ingredients"); err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, recipeImageFolder, img)
	if err != nil {
		return nil, apperrors.Internal("failed to store recipe image", err)
	}

	recipe := models.Recipe{
		AuthorID:    viewer.UserID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       url,
		CookingTime: req.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := newShortCode(ctx, tx)
		if err != nil {
			return err
		}
		recipe.ShortCode = code
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, recipe.ID, req.Tags); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, req.Ingredients)
	})
	if err != nil {
		s.discardImage(ctx, url)
		return nil, err
	}

	s.log.Info("recipe created", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", viewer.UserID))
	return s.GetRecipe(ctx, viewer, recipe.ID)
}

// UpdateRecipe applies a partial update by the recipe's author. Tags and
// ingredients that are present replace the current sets.
func (s *RecipeService) UpdateRecipe(ctx context.Context, viewer types.Viewer, id uint, req *types.RecipeUpdateRequest) (*types.RecipeResponse, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	recipe, err := s.findOwned(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name.Set {
		if err := s.validator.Var("name", req.Name.Value, "required,max=256"); err != nil {
			return nil, err
		}
		updates["name"] = req.Name.Value
	}
	if req.Text.Set {
		if err := s.validator.Var("text", req.Text.Value, "required"); err != nil {
			return nil, err
		}
		updates["text"] = req.Text.Value
	}
	if req.CookingTime.Set {
		if err := validateCookingTime(req.CookingTime.Value); err != nil {
			return nil, err
		}
		updates["cooking_time"] = req.CookingTime.Value
	}
	if req.Tags.Set {
		if err := validateTagIDs(req.Tags.Value); err != nil {
			return nil, err
		}
		if err := ensureExist(ctx, s.db, &models.Tag{}, req.Tags.Value, "tags"); err != nil {
			return nil, err
		}
	}
	if req.Ingredients.Set {
		if err := validateIngredientLines(req.Ingredients.Value); err != nil {
			return nil, err
		}
		if err := ensureExist(ctx, s.db, &models.Ingredient{}, lineIDs(req.Ingredients.Value), "ingredients"); err != nil {
			return nil, err
		}
	}

	var img *storage.Image
	if req.Image.Set {
		if img, err = decodeImage("image", req.Image.Value); err != nil {
			return nil, err
		}
	}

	previousImage := recipe.Image
	var newImage string
	if img != nil {
		if newImage, err = s.images.Save(ctx, recipeImageFolder, img); err != nil {
			return nil, apperrors.Internal("failed to store recipe image", err)
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Tags.Set {
			if err := replaceTags(tx, recipe.ID, req.Tags.Value); err != nil {
				return err
			}
		}
		if req.Ingredients.Set {
			return replaceIngredients(tx, recipe.ID, req.Ingredients.Value)
		}
		return nil
	})
	if err != nil {
		if newImage != "" {
			s.discardImage(ctx, newImage)
		}
		return nil, err
	}
	if newImage != "" {
		s.discardImage(ctx, previousImage)
	}

	s.log.Info("recipe updated", zap.Uint("recipe_id", recipe.ID))
	return s.GetRecipe(ctx, viewer, recipe.ID)
}

// DeleteRecipe removes a recipe with its lines, tag links, favorites and cart
// entries.
func (s *RecipeService) DeleteRecipe(ctx context.Context, viewer types.Viewer, id uint) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	recipe, err := s.findOwned(ctx, viewer, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.RecipeTag{},
			&models.RecipeIngredient{},
			&models.Favorite{},
			&models.ShoppingCartItem{},
		} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipe.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.discardImage(ctx, recipe.Image)
	s.log.Info("recipe deleted", zap.Uint("recipe_id", recipe.ID))
	return nil
}

func (s *RecipeService) findOwned(ctx context.Context, viewer types.Viewer, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe")
	}
	if recipe.AuthorID != viewer.UserID {
		return nil, apperrors.Forbidden("only the author can change this recipe")
	}
	return &recipe, nil
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name")
		}).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.id")
		}).
		Preload("Ingredients.Ingredient")
}

func (s *RecipeService) GetRecipe(ctx context.Context, viewer types.Viewer, id uint) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe")
	}
	out, err := s.represent(ctx, viewer, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListRecipes returns a page of recipes, newest first.
//
// Tag slugs match any of the given tags. The favorited and cart flags filter
// by the viewer's own sets and are ignored for anonymous viewers.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer types.Viewer, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(filter.Tags) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", filter.AuthorID)
	}

	q = s.filterMembership(q, viewer, &models.Favorite{}, filter.IsFavorited)
	q = s.filterMembership(q, viewer, &models.ShoppingCartItem{}, filter.IsInShoppingCart)

	base := q.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page.Bounds()
	var recipes []models.Recipe
	err := withDetails(base).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	out, err := s.represent(ctx, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// filterMembership narrows q by the viewer's rows in model's table. A false
// want keeps recipes outside the set.
func (s *RecipeService) filterMembership(q *gorm.DB, viewer types.Viewer, model any, want *bool) *gorm.DB {
	if want == nil || !viewer.Authenticated() {
		return q
	}
	members := s.db.Model(model).Select("recipe_id").Where("user_id = ?", viewer.UserID)
	if *want {
		return q.Where("recipes.id IN (?)", members)
	}
	return q.Where("recipes.id NOT IN (?)", members)
}

// represent maps recipes to responses with the viewer's flags filled in.
func (s *RecipeService) represent(ctx context.Context, viewer types.Viewer, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	ids := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := memberSet(ctx, s.db, &models.Favorite{}, viewer.UserID, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := memberSet(ctx, s.db, &models.ShoppingCartItem{}, viewer.UserID, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := subscribedSet(ctx, s.db, viewer.UserID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		out = append(out, toRecipeResponse(r, recipeFlags{
			favorited:  favorited[r.ID],
			inCart:     inCart[r.ID],
			subscribed: subscribed[r.AuthorID],
		}))
	}
	return out, nil
}

// ShortLink returns the public short URL of a recipe.
func (s *RecipeService) ShortLink(ctx context.Context, id uint) (string, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "short_code").First(&recipe, id).Error; err != nil {
		return "", notFoundOr(err, "recipe")
	}
	return fmt.Sprintf("%s/s/%s", s.baseURL, recipe.ShortCode), nil
}

// ResolveShortLink returns the id of the recipe behind a short code.
func (s *RecipeService) ResolveShortLink(ctx context.Context, code string) (uint, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").Where("short_code = ?", code).First(&recipe).Error; err != nil {
		return 0, notFoundOr(err, "short link")
	}
	return recipe.ID, nil
}

func (s *RecipeService) discardImage(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		s.log.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
	}
}
