package testhelpers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/foodgram/backend/internal/types"
)

// MockAuthService is a mock implementation of the IAuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

// MockRecipeService is a mock implementation of the IRecipeService interface
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, viewer types.Viewer, req *types.RecipeCreateRequest) (*types.RecipeResponse, error) {
	args := m.Called(ctx, viewer, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) GetRecipe(ctx context.Context, viewer types.Viewer, id uint) (*types.RecipeResponse, error) {
	args := m.Called(ctx, viewer, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, viewer types.Viewer, id uint, req *types.RecipeUpdateRequest) (*types.RecipeResponse, error) {
	args := m.Called(ctx, viewer, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeResponse), args.Error(1)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, viewer types.Viewer, id uint) error {
	args := m.Called(ctx, viewer, id)
	return args.Error(0)
}

func (m *MockRecipeService) ListRecipes(ctx context.Context, viewer types.Viewer, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	args := m.Called(ctx, viewer, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.RecipeResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeService) ShortLink(ctx context.Context, id uint) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockRecipeService) ResolveShortLink(ctx context.Context, code string) (uint, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(uint), args.Error(1)
}

// MockShoppingListService is a mock implementation of the IShoppingListService interface
type MockShoppingListService struct {
	mock.Mock
}

func (m *MockShoppingListService) ShoppingList(ctx context.Context, viewer types.Viewer) ([]types.ShoppingListItem, error) {
	args := m.Called(ctx, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShoppingListItem), args.Error(1)
}
