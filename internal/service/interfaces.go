package service

import (
	"context"

	"github.com/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// IUserService defines the interface for user account operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error)
	GetUser(ctx context.Context, viewer types.Viewer, id uint) (*types.UserResponse, error)
	ListUsers(ctx context.Context, viewer types.Viewer, page types.PageRequest) ([]types.UserResponse, int64, error)
	Me(ctx context.Context, viewer types.Viewer) (*types.UserResponse, error)
	UpdateUser(ctx context.Context, viewer types.Viewer, id uint, req *types.UserUpdateRequest) (*types.UserResponse, error)
	SetPassword(ctx context.Context, viewer types.Viewer, req *types.SetPasswordRequest) error
	SetAvatar(ctx context.Context, viewer types.Viewer, req *types.AvatarRequest) (string, error)
	DeleteAvatar(ctx context.Context, viewer types.Viewer) error
}

// ICatalogService defines the interface for tag and ingredient reference data
type ICatalogService interface {
	ListTags(ctx context.Context) ([]types.TagResponse, error)
	GetTag(ctx context.Context, id uint) (*types.TagResponse, error)
	CreateTag(ctx context.Context, viewer types.Viewer, req *types.TagCreateRequest) (*types.TagResponse, error)
	ListIngredients(ctx context.Context, namePrefix string) ([]types.IngredientResponse, error)
	GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error)
	CreateIngredient(ctx context.Context, viewer types.Viewer, req *types.IngredientCreateRequest) (*types.IngredientResponse, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, viewer types.Viewer, req *types.RecipeCreateRequest) (*types.RecipeResponse, error)
	GetRecipe(ctx context.Context, viewer types.Viewer, id uint) (*types.RecipeResponse, error)
	UpdateRecipe(ctx context.Context, viewer types.Viewer, id uint, req *types.RecipeUpdateRequest) (*types.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, viewer types.Viewer, id uint) error
	ListRecipes(ctx context.Context, viewer types.Viewer, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error)
	ShortLink(ctx context.Context, id uint) (string, error)
	ResolveShortLink(ctx context.Context, code string) (uint, error)
}

// IInteractionService defines the interface for favorites, the shopping cart
// and subscriptions
type IInteractionService interface {
	AddFavorite(ctx context.Context, viewer types.Viewer, recipeID uint) (*types.RecipeMinified, error)
	RemoveFavorite(ctx context.Context, viewer types.Viewer, recipeID uint) error
	AddToCart(ctx context.Context, viewer types.Viewer, recipeID uint) (*types.RecipeMinified, error)
	RemoveFromCart(ctx context.Context, viewer types.Viewer, recipeID uint) error
	Subscribe(ctx context.Context, viewer types.Viewer, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, viewer types.Viewer, authorID uint) error
	Subscriptions(ctx context.Context, viewer types.Viewer, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
}

// IShoppingListService defines the interface for building shopping lists
type IShoppingListService interface {
	ShoppingList(ctx context.Context, viewer types.Viewer) ([]types.ShoppingListItem, error)
}

// compile-time checks
var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ ICatalogService      = (*CatalogService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ IInteractionService  = (*InteractionService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
)

