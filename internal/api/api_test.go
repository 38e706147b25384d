package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	images *testhelpers.MemoryImageStore
}

func setupAPI(t *testing.T, createLimit int) *testAPI {
	t.Helper()
	db := testhelpers.NewSQLiteDB(t)
	images := testhelpers.NewMemoryImageStore()
	v := validation.New()
	log := zap.NewNop()

	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	api.SetupAPI(router, api.Deps{
		DB:            db,
		Auth:          service.NewAuthService(db, "test-secret", time.Hour, log),
		Users:         service.NewUserService(db, images, v, log),
		Catalog:       service.NewCatalogService(db, v, log),
		Recipes:       service.NewRecipeService(db, images, v, log, "http://foodgram.test"),
		Interactions:  service.NewInteractionService(db, log),
		Shopping:      service.NewShoppingListService(db),
		Validator:     v,
		CreateLimiter: middleware.NewLocalLimiter(middleware.NewRecipeCreationConfig(createLimit, time.Hour)),
		Log:           log,
	})
	return &testAPI{router: router, db: db, images: images}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(t *testing.T, user *models.User) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/token/login/", gin.H{
		"email":    user.Email,
		"password": testhelpers.Password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AuthToken)
	return resp.AuthToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, code, body["code"])
	return body
}

func TestHealth(t *testing.T) {
	a := setupAPI(t, 10)
	w := a.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestAccountFlow(t *testing.T) {
	a := setupAPI(t, 10)

	w := a.do(t, http.MethodPost, "/api/users/", gin.H{
		"email":      "Alice@Example.com",
		"username":   "alice",
		"first_name": "Alice",
		"last_name":  "Liddell",
		"password":   "wonderland",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "alice", created["username"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "is_subscribed")

	w = a.do(t, http.MethodPost, "/api/auth/token/login/", gin.H{
		"email":    "alice@example.com",
		"password": "wonderland",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["auth_token"].(string)
	require.NotEmpty(t, token)

	w = a.do(t, http.MethodGet, "/api/users/me/", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode(t, w)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, false, me["is_subscribed"])
	assert.Nil(t, me["avatar"])

	w = a.do(t, http.MethodPost, "/api/auth/token/logout/", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/api/users/me/", nil, token)
	requireErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := setupAPI(t, 10)
	user := testhelpers.CreateUser(t, a.db, "alice")

	w := a.do(t, http.MethodPost, "/api/auth/token/login/", gin.H{
		"email":    user.Email,
		"password": "wrong-password",
	}, "")
	requireErrorCode(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	w = a.do(t, http.MethodPost, "/api/auth/token/login/", gin.H{"email": "not-an-email"}, "")
	body := requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")
	assert.Contains(t, body["details"], "email")
}

func TestRegisterValidation(t *testing.T) {
	a := setupAPI(t, 10)
	testhelpers.CreateUser(t, a.db, "alice")

	w := a.do(t, http.MethodPost, "/api/users/", gin.H{
		"email":      "alice@example.com",
		"username":   "alice",
		"first_name": "A",
		"last_name":  "L",
		"password":   "wonderland",
	}, "")
	body := requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "username")

	req := httptest.NewRequest(http.MethodPost, "/api/users/", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := setupAPI(t, 10)
	author := testhelpers.CreateUser(t, a.db, "alice")
	token := a.login(t, author)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/me/"},
		{http.MethodPost, "/api/users/set_password/"},
		{http.MethodGet, "/api/users/subscriptions/"},
		{http.MethodPost, "/api/recipes/"},
		{http.MethodPost, "/api/recipes/1/favorite/"},
		{http.MethodDelete, "/api/recipes/1/shopping_cart/"},
		{http.MethodGet, "/api/recipes/download_shopping_cart/"},
		{http.MethodPost, "/api/auth/token/logout/"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			w := a.do(t, r.method, r.path, nil, "")
			requireErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}

	t.Run("invalid token on a public route", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/recipes/", nil, token+"x")
		requireErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	})
}

func TestAdminRoutes(t *testing.T) {
	a := setupAPI(t, 10)
	user := testhelpers.CreateUser(t, a.db, "alice")
	admin := testhelpers.CreateUserWithRole(t, a.db, "root", models.RoleAdmin)
	userToken := a.login(t, user)
	adminToken := a.login(t, admin)

	tag := gin.H{"name": "Breakfast", "slug": "breakfast"}
	w := a.do(t, http.MethodPost, "/api/tags/", tag, userToken)
	requireErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")

	w = a.do(t, http.MethodPost, "/api/tags/", tag, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/tags/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tags []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "breakfast", tags[0]["slug"])

	w = a.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/", user.ID), gin.H{"first_name": "Alicia"}, userToken)
	requireErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")

	w = a.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/", user.ID), gin.H{"first_name": "Alicia"}, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Alicia", decode(t, w)["first_name"])
}

func TestMalformedIDIsNotFound(t *testing.T) {
	a := setupAPI(t, 10)
	for _, path := range []string{"/api/recipes/abc/", "/api/recipes/0/", "/api/users/-1/", "/api/tags/999/"} {
		w := a.do(t, http.MethodGet, path, nil, "")
		requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
	}
}

func TestIngredientSearch(t *testing.T) {
	a := setupAPI(t, 10)
	testhelpers.CreateIngredient(t, a.db, "sugar", "g")
	testhelpers.CreateIngredient(t, a.db, "salt", "g")

	w := a.do(t, http.MethodGet, "/api/ingredients/?name=SU", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "sugar", found[0]["name"])
	assert.Equal(t, "g", found[0]["measurement_unit"])
}

// kitchen is a populated API with two users and a small catalog.
type kitchen struct {
	*testAPI
	alice, bob       *models.User
	aliceToken       string
	bobToken         string
	breakfast, lunch *models.Tag
	flour, sugar     *models.Ingredient
}

func setupKitchen(t *testing.T, createLimit int) *kitchen {
	t.Helper()
	a := setupAPI(t, createLimit)
	k := &kitchen{
		testAPI:   a,
		alice:     testhelpers.CreateUser(t, a.db, "alice"),
		bob:       testhelpers.CreateUser(t, a.db, "bob"),
		breakfast: testhelpers.CreateTag(t, a.db, "Breakfast", "breakfast"),
		lunch:     testhelpers.CreateTag(t, a.db, "Lunch", "lunch"),
		flour:     testhelpers.CreateIngredient(t, a.db, "flour", "g"),
		sugar:     testhelpers.CreateIngredient(t, a.db, "sugar", "g"),
	}
	k.aliceToken = a.login(t, k.alice)
	k.bobToken = a.login(t, k.bob)
	return k
}

func (k *kitchen) recipeBody(name string, tag *models.Tag) gin.H {
	return gin.H{
		"name":         name,
		"text":         "Mix and cook.",
		"image":        testhelpers.PNGDataURI,
		"cooking_time": 20,
		"tags":         []uint{tag.ID},
		"ingredients": []gin.H{
			{"id": k.flour.ID, "amount": 200},
			{"id": k.sugar.ID, "amount": 100},
		},
	}
}

func (k *kitchen) createRecipe(t *testing.T, token, name string, tag *models.Tag) uint {
	t.Helper()
	w := k.do(t, http.MethodPost, "/api/recipes/", k.recipeBody(name, tag), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, ok := decode(t, w)["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func TestRecipeLifecycle(t *testing.T) {
	k := setupKitchen(t, 10)

	w := k.do(t, http.MethodPost, "/api/recipes/", k.recipeBody("Pancakes", k.breakfast), k.aliceToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := uint(created["id"].(float64))
	assert.Equal(t, "Pancakes", created["name"])
	assert.Equal(t, false, created["is_favorited"])
	assert.Len(t, created["ingredients"], 2)
	author := created["author"].(map[string]any)
	assert.Equal(t, "alice", author["username"])
	path := fmt.Sprintf("/api/recipes/%d/", id)

	w = k.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = k.do(t, http.MethodPatch, path, gin.H{"name": "Stolen"}, k.bobToken)
	requireErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")

	w = k.do(t, http.MethodPatch, path, gin.H{"name": "Fluffy pancakes", "tags": []uint{k.lunch.ID}}, k.aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "Fluffy pancakes", updated["name"])
	assert.Len(t, updated["ingredients"], 2)
	tags := updated["tags"].([]any)
	require.Len(t, tags, 1)
	assert.Equal(t, "lunch", tags[0].(map[string]any)["slug"])

	w = k.do(t, http.MethodDelete, path, nil, k.bobToken)
	requireErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")
	w = k.do(t, http.MethodDelete, path, nil, k.aliceToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = k.do(t, http.MethodGet, path, nil, "")
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestRecipeValidationErrors(t *testing.T) {
	k := setupKitchen(t, 10)
	tests := []struct {
		field string
		value any
	}{
		{"cooking_time", 0},
		{"ingredients", []gin.H{}},
		{"tags", []uint{}},
		{"image", "not-a-data-uri"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			body := k.recipeBody("Pancakes", k.breakfast)
			body[tt.field] = tt.value

			w := k.do(t, http.MethodPost, "/api/recipes/", body, k.aliceToken)
			resp := requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")
			details, ok := resp["details"].(map[string]any)
			require.True(t, ok, "details: %v", resp["details"])
			assert.Contains(t, details, tt.field)
		})
	}
	assert.Zero(t, k.images.Len())
}

func TestRecipeListPagination(t *testing.T) {
	k := setupKitchen(t, 100)
	for i := 1; i <= 8; i++ {
		k.createRecipe(t, k.aliceToken, fmt.Sprintf("Recipe %d", i), k.breakfast)
	}

	w := k.do(t, http.MethodGet, "/api/recipes/?limit=6", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(8), page["count"])
	assert.Equal(t, "http://example.com/api/recipes/?limit=6&page=2", page["next"])
	assert.Nil(t, page["previous"])
	results := page["results"].([]any)
	require.Len(t, results, 6)
	assert.Equal(t, "Recipe 8", results[0].(map[string]any)["name"])

	w = k.do(t, http.MethodGet, "/api/recipes/?limit=6&page=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page = decode(t, w)
	assert.Nil(t, page["next"])
	assert.Equal(t, "http://example.com/api/recipes/?limit=6", page["previous"])
	assert.Len(t, page["results"], 2)

	w = k.do(t, http.MethodGet, "/api/recipes/?page=9", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["results"])

	w = k.do(t, http.MethodGet, "/api/recipes/?limit=abc", nil, "")
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")
}

func TestRecipeListHugePageIsClamped(t *testing.T) {
	k := setupKitchen(t, 10)
	k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)

	w := k.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/?page=%d", math.MaxInt), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	assert.Equal(t, float64(1), page["count"])
	assert.Empty(t, page["results"])
	assert.Nil(t, page["next"])
	assert.Equal(t, fmt.Sprintf("http://example.com/api/recipes/?page=%d", types.MaxPage-1), page["previous"])
}

func TestRecipeListFilters(t *testing.T) {
	k := setupKitchen(t, 10)
	pancakes := k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)
	k.createRecipe(t, k.aliceToken, "Soup", k.lunch)
	k.createRecipe(t, k.bobToken, "Toast", k.breakfast)

	names := func(path, token string) []string {
		t.Helper()
		w := k.do(t, http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []string
		for _, r := range decode(t, w)["results"].([]any) {
			out = append(out, r.(map[string]any)["name"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"Toast", "Pancakes"}, names("/api/recipes/?tags=breakfast", ""))
	assert.Equal(t, []string{"Toast", "Soup", "Pancakes"}, names("/api/recipes/?tags=breakfast&tags=lunch", ""))
	assert.Equal(t, []string{"Soup", "Pancakes"}, names(fmt.Sprintf("/api/recipes/?author=%d", k.alice.ID), ""))

	w := k.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite/", pancakes), nil, k.bobToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, []string{"Pancakes"}, names("/api/recipes/?is_favorited=1", k.bobToken))
	assert.Equal(t, []string{"Toast", "Soup"}, names("/api/recipes/?is_favorited=0", k.bobToken))
	assert.Len(t, names("/api/recipes/?is_favorited=1", ""), 3)

	w = k.do(t, http.MethodGet, "/api/recipes/?is_favorited=maybe", nil, k.bobToken)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")
}

func TestFavoritesAndCart(t *testing.T) {
	k := setupKitchen(t, 10)
	id := k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)

	for _, set := range []string{"favorite", "shopping_cart"} {
		t.Run(set, func(t *testing.T) {
			path := fmt.Sprintf("/api/recipes/%d/%s/", id, set)

			w := k.do(t, http.MethodPost, path, nil, k.bobToken)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			minified := decode(t, w)
			assert.Equal(t, "Pancakes", minified["name"])
			assert.Equal(t, float64(20), minified["cooking_time"])
			assert.NotContains(t, minified, "text")

			w = k.do(t, http.MethodPost, path, nil, k.bobToken)
			requireErrorCode(t, w, http.StatusBadRequest, "ALREADY_EXISTS")

			w = k.do(t, http.MethodDelete, path, nil, k.bobToken)
			assert.Equal(t, http.StatusNoContent, w.Code)
			w = k.do(t, http.MethodDelete, path, nil, k.bobToken)
			requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
		})
	}

	w := k.do(t, http.MethodPost, "/api/recipes/999/favorite/", nil, k.bobToken)
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestDownloadShoppingCart(t *testing.T) {
	k := setupKitchen(t, 10)
	first := k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)
	second := k.createRecipe(t, k.aliceToken, "Crepes", k.breakfast)
	for _, id := range []uint{first, second} {
		w := k.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", id), nil, k.bobToken)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := k.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", nil, k.bobToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping_list.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "flour (g) — 400\nsugar (g) — 200\n", w.Body.String())

	w = k.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", nil, k.aliceToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestShortLinks(t *testing.T) {
	k := setupKitchen(t, 10)
	id := k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)

	w := k.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/%d/get-link/", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	link, _ := decode(t, w)["short-link"].(string)
	require.Contains(t, link, "http://foodgram.test/s/")

	w = k.do(t, http.MethodGet, link[len("http://foodgram.test"):], nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/recipes/%d", id), w.Header().Get("Location"))

	w = k.do(t, http.MethodGet, "/s/unknown", nil, "")
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestSubscriptions(t *testing.T) {
	k := setupKitchen(t, 10)
	k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)
	k.createRecipe(t, k.aliceToken, "Soup", k.lunch)
	path := fmt.Sprintf("/api/users/%d/subscribe/", k.alice.ID)

	w := k.do(t, http.MethodPost, path+"?recipes_limit=1", nil, k.bobToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode(t, w)
	assert.Equal(t, "alice", sub["username"])
	assert.Equal(t, true, sub["is_subscribed"])
	assert.Equal(t, float64(2), sub["recipes_count"])
	assert.Len(t, sub["recipes"], 1)

	w = k.do(t, http.MethodPost, path, nil, k.bobToken)
	requireErrorCode(t, w, http.StatusBadRequest, "ALREADY_EXISTS")

	w = k.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", k.bob.ID), nil, k.bobToken)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")

	w = k.do(t, http.MethodPost, path+"?recipes_limit=-2", nil, k.bobToken)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")

	w = k.do(t, http.MethodGet, "/api/users/subscriptions/", nil, k.bobToken)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(1), page["count"])

	w = k.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/", k.alice.ID), nil, k.bobToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = k.do(t, http.MethodDelete, path, nil, k.bobToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = k.do(t, http.MethodDelete, path, nil, k.bobToken)
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestAvatarAndPassword(t *testing.T) {
	k := setupKitchen(t, 10)

	w := k.do(t, http.MethodPut, "/api/users/me/avatar/", gin.H{"avatar": testhelpers.PNGDataURI}, k.aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	avatar, _ := decode(t, w)["avatar"].(string)
	assert.True(t, k.images.Has(avatar))

	w = k.do(t, http.MethodDelete, "/api/users/me/avatar/", nil, k.aliceToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, k.images.Has(avatar))

	w = k.do(t, http.MethodPost, "/api/users/set_password/", gin.H{
		"current_password": "not-it",
		"new_password":     "a-new-password",
	}, k.aliceToken)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION")

	w = k.do(t, http.MethodPost, "/api/users/set_password/", gin.H{
		"current_password": testhelpers.Password,
		"new_password":     "a-new-password",
	}, k.aliceToken)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = k.do(t, http.MethodPost, "/api/auth/token/login/", gin.H{
		"email":    k.alice.Email,
		"password": "a-new-password",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecipeCreationRateLimit(t *testing.T) {
	k := setupKitchen(t, 1)

	w := k.do(t, http.MethodGet, "/api/rate-limits/recipe-creation/", nil, k.aliceToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["remaining"])

	k.createRecipe(t, k.aliceToken, "Pancakes", k.breakfast)

	w = k.do(t, http.MethodPost, "/api/recipes/", k.recipeBody("Crepes", k.breakfast), k.aliceToken)
	requireErrorCode(t, w, http.StatusTooManyRequests, "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// limits are per user
	k.createRecipe(t, k.bobToken, "Toast", k.breakfast)
}
