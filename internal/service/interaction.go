package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

// InteractionService manages a user's favorites, shopping cart and
// subscriptions. Each is a set of unique pairs; adding a member twice or
// removing a non-member is an error.
type InteractionService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewInteractionService(db *gorm.DB, log *zap.Logger) *InteractionService {
	return &InteractionService{db: db, log: log}
}

func (s *InteractionService) findRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe")
	}
	return &recipe, nil
}

// addMember inserts row and relies on the pair's unique index to reject
// duplicates, so concurrent identical requests cannot both succeed.
func (s *InteractionService) addMember(ctx context.Context, row any, duplicate string) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists(duplicate)
		}
		return err
	}
	return nil
}

func (s *InteractionService) removeMember(ctx context.Context, model any, column string, userID, otherID uint, missing string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND "+column+" = ?", userID, otherID).
		Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(missing)
	}
	return nil
}

func (s *InteractionService) AddFavorite(ctx context.Context, viewer types.Viewer, recipeID uint) (*types.RecipeMinified, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	row := &models.Favorite{UserID: viewer.UserID, RecipeID: recipe.ID}
	if err := s.addMember(ctx, row, "recipe is already in favorites"); err != nil {
		return nil, err
	}
	s.log.Debug("recipe favorited", zap.Uint("user_id", viewer.UserID), zap.Uint("recipe_id", recipe.ID))
	out := toRecipeMinified(recipe)
	return &out, nil
}

func (s *InteractionService) RemoveFavorite(ctx context.Context, viewer types.Viewer, recipeID uint) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}
	return s.removeMember(ctx, &models.Favorite{}, "recipe_id", viewer.UserID, recipeID, "recipe is not in favorites")
}

func (s *InteractionService) AddToCart(ctx context.Context, viewer types.Viewer, recipeID uint) (*types.RecipeMinified, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	row := &models.ShoppingCartItem{UserID: viewer.UserID, RecipeID: recipe.ID}
	if err := s.addMember(ctx, row, "recipe is already in the shopping cart"); err != nil {
		return nil, err
	}
	s.log.Debug("recipe added to cart", zap.Uint("user_id", viewer.UserID), zap.Uint("recipe_id", recipe.ID))
	out := toRecipeMinified(recipe)
	return &out, nil
}

func (s *InteractionService) RemoveFromCart(ctx context.Context, viewer types.Viewer, recipeID uint) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}
	return s.removeMember(ctx, &models.ShoppingCartItem{}, "recipe_id", viewer.UserID, recipeID, "recipe is not in the shopping cart")
}

// Subscribe makes the viewer follow authorID and returns the author with up
// to recipesLimit of their recipes; a limit below one means all of them.
func (s *InteractionService) Subscribe(ctx context.Context, viewer types.Viewer, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	if author.ID == viewer.UserID {
		return nil, apperrors.Validation("you cannot subscribe to yourself")
	}

	row := &models.Subscription{UserID: viewer.UserID, AuthorID: author.ID}
	if err := s.addMember(ctx, row, "you are already subscribed to this user"); err != nil {
		return nil, err
	}
	s.log.Debug("subscribed", zap.Uint("user_id", viewer.UserID), zap.Uint("author_id", author.ID))

	out, err := s.subscriptionViews(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *InteractionService) Unsubscribe(ctx context.Context, viewer types.Viewer, authorID uint) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("user not found")
	}
	return s.removeMember(ctx, &models.Subscription{}, "author_id", viewer.UserID, authorID, "you are not subscribed to this user")
}

// Subscriptions lists the authors the viewer follows, in subscription order.
func (s *InteractionService) Subscriptions(ctx context.Context, viewer types.Viewer, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("user_id = ?", viewer.UserID)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page.Bounds()
	var authors []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", viewer.UserID).
		Order("subscriptions.id").
		Offset(offset).
		Limit(limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}

	out, err := s.subscriptionViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// subscriptionViews renders followed authors with recipe previews and counts.
func (s *InteractionService) subscriptionViews(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		author := &authors[i]

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
			Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}

		q := s.db.WithContext(ctx).Where("author_id = ?", author.ID).Order("created_at DESC").Order("id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}

		previews := make([]types.RecipeMinified, 0, len(recipes))
		for j := range recipes {
			previews = append(previews, toRecipeMinified(&recipes[j]))
		}
		out = append(out, types.SubscriptionResponse{
			// every listed author is followed by the viewer
			UserResponse: toUserResponse(author, true),
			Recipes:      previews,
			RecipesCount: count,
		})
	}
	return out, nil
}
