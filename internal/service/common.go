package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

func requireAuth(viewer types.Viewer) error {
	if !viewer.Authenticated() {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// notFoundOr maps gorm's missing-record error to a NotFound domain error.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(what + " not found")
	}
	return err
}

// memberSet returns which of recipeIDs the user has in the table behind model.
func memberSet(ctx context.Context, db *gorm.DB, model any, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// subscribedSet returns which of authorIDs the user follows.
func subscribedSet(ctx context.Context, db *gorm.DB, userID uint, authorIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if userID == 0 || len(authorIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func toUserResponse(u *models.User, subscribed bool) types.UserResponse {
	resp := types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		avatar := u.Avatar
		resp.Avatar = &avatar
	}
	return resp
}

func toTagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func toIngredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func toRecipeMinified(r *models.Recipe) types.RecipeMinified {
	return types.RecipeMinified{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

// recipeFlags are the viewer-relative parts of a recipe representation.
type recipeFlags struct {
	favorited  bool
	inCart     bool
	subscribed bool
}

func toRecipeResponse(r *models.Recipe, flags recipeFlags) types.RecipeResponse {
	tags := make([]types.TagResponse, 0, len(r.Tags))
	for i := range r.Tags {
		tags = append(tags, toTagResponse(&r.Tags[i]))
	}
	lines := make([]types.RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		lines = append(lines, types.RecipeIngredientResponse{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		})
	}
	return types.RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           toUserResponse(&r.Author, flags.subscribed),
		Ingredients:      lines,
		IsFavorited:      flags.favorited,
		IsInShoppingCart: flags.inCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}
