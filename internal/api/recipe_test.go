package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

type mockedAPI struct {
	router   *gin.Engine
	auth     *testhelpers.MockAuthService
	recipes  *testhelpers.MockRecipeService
	shopping *testhelpers.MockShoppingListService
}

func setupMockedAPI(t *testing.T) *mockedAPI {
	t.Helper()
	m := &mockedAPI{
		auth:     new(testhelpers.MockAuthService),
		recipes:  new(testhelpers.MockRecipeService),
		shopping: new(testhelpers.MockShoppingListService),
	}
	log := zap.NewNop()
	m.router = gin.New()
	m.router.Use(middleware.ErrorHandler(log))
	api.SetupAPI(m.router, api.Deps{
		Auth:          m.auth,
		Recipes:       m.recipes,
		Shopping:      m.shopping,
		Validator:     validation.New(),
		CreateLimiter: middleware.NewLocalLimiter(middleware.NewRecipeCreationConfig(5, time.Minute)),
		Log:           log,
	})
	m.auth.On("ValidateToken", mock.Anything, "cook-token").
		Return(&types.TokenClaims{UserID: 7, Role: models.RoleUser}, nil).Maybe()
	t.Cleanup(func() {
		m.auth.AssertExpectations(t)
		m.recipes.AssertExpectations(t)
		m.shopping.AssertExpectations(t)
	})
	return m
}

func (m *mockedAPI) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Token cook-token")
	w := httptest.NewRecorder()
	m.router.ServeHTTP(w, req)
	return w
}

func TestListRecipesPassesQueryToService(t *testing.T) {
	m := setupMockedAPI(t)
	favorited := true
	m.recipes.On("ListRecipes", mock.Anything,
		types.Viewer{UserID: 7, Role: models.RoleUser},
		types.RecipeFilter{Tags: []string{"breakfast", "lunch"}, AuthorID: 3, IsFavorited: &favorited},
		types.PageRequest{Page: 2, Limit: 5},
	).Return([]types.RecipeResponse{{ID: 1, Name: "Pancakes"}}, int64(11), nil)

	w := m.get("/api/recipes/?tags=breakfast&tags=lunch&author=3&is_favorited=true&page=2&limit=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	assert.Equal(t, float64(11), page["count"])
	assert.Equal(t,
		"http://example.com/api/recipes/?author=3&is_favorited=true&limit=5&page=3&tags=breakfast&tags=lunch",
		page["next"])
	assert.Equal(t,
		"http://example.com/api/recipes/?author=3&is_favorited=true&limit=5&tags=breakfast&tags=lunch",
		page["previous"])
}

func TestPageLinksFollowForwardedProto(t *testing.T) {
	m := setupMockedAPI(t)
	m.recipes.On("ListRecipes", mock.Anything, mock.Anything, mock.Anything, types.PageRequest{}).
		Return([]types.RecipeResponse{}, int64(7), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	m.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, "https://example.com/api/recipes/?page=2", page["next"])
	assert.Equal(t, []any{}, page["results"])
}

func TestInternalErrorsAreHidden(t *testing.T) {
	m := setupMockedAPI(t)
	m.recipes.On("GetRecipe", mock.Anything, mock.Anything, uint(5)).
		Return(nil, errors.New("connection refused"))

	w := m.get("/api/recipes/5/")
	body := requireErrorCode(t, w, http.StatusInternalServerError, "INTERNAL")
	assert.NotContains(t, body["error"], "connection refused")
}

func TestDownloadShoppingCartRendersItems(t *testing.T) {
	m := setupMockedAPI(t)
	m.shopping.On("ShoppingList", mock.Anything, types.Viewer{UserID: 7, Role: models.RoleUser}).
		Return([]types.ShoppingListItem{{Name: "egg", Unit: "pcs", Total: 3}}, nil)

	w := m.get("/api/recipes/download_shopping_cart/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "egg (pcs) — 3\n", w.Body.String())
}
