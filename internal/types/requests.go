package types

import (
	"math"

	"github.com/foodgram/backend/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// AvatarRequest carries an image as a base64 data URI.
type AvatarRequest struct {
	Avatar string `json:"avatar" validate:"required"`
}

// UserUpdateRequest is the administrator's partial update of a user.
type UserUpdateRequest struct {
	Email     Optional[string]      `json:"email"`
	Username  Optional[string]      `json:"username"`
	FirstName Optional[string]      `json:"first_name"`
	LastName  Optional[string]      `json:"last_name"`
	Role      Optional[models.Role] `json:"role"`
}

type TagCreateRequest struct {
	Name string `json:"name" validate:"required,max=32"`
	Slug string `json:"slug" validate:"required,max=32,slug"`
}

type IngredientCreateRequest struct {
	Name            string `json:"name" validate:"required,max=128"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=64"`
}

// IngredientLine references a catalog ingredient with an amount.
type IngredientLine struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

type RecipeCreateRequest struct {
	Ingredients []IngredientLine `json:"ingredients"`
	Tags        []uint           `json:"tags"`
	Image       string           `json:"image" validate:"required"`
	Name        string           `json:"name" validate:"required,max=256"`
	Text        string           `json:"text" validate:"required"`
	CookingTime int              `json:"cooking_time"`
}

// RecipeUpdateRequest is a partial update. Tags and ingredients, when
// present, replace the recipe's current sets.
type RecipeUpdateRequest struct {
	Ingredients Optional[[]IngredientLine] `json:"ingredients"`
	Tags        Optional[[]uint]           `json:"tags"`
	Image       Optional[string]           `json:"image"`
	Name        Optional[string]           `json:"name"`
	Text        Optional[string]           `json:"text"`
	CookingTime Optional[int]              `json:"cooking_time"`
}

const (
	DefaultPageSize = 6
	MaxPageSize     = 100

	// MaxPage keeps page*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// PageRequest selects a 1-based page. Zero values mean the defaults.
type PageRequest struct {
	Page  int
	Limit int
}

// Bounds converts the request into an offset and a limit clamped to
// MaxPageSize. Pages past MaxPage are read as MaxPage.
func (p PageRequest) Bounds() (offset, limit int) {
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	return (page - 1) * limit, limit
}

// RecipeFilter narrows a recipe listing. Nil flags are not applied.
type RecipeFilter struct {
	Tags             []string
	AuthorID         uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}
