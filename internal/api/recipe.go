package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

// ShoppingListFilename is the attachment name of the downloaded cart.
const ShoppingListFilename = "shopping_list.txt"

type RecipeHandler struct {
	recipes       service.IRecipeService
	interactions  service.IInteractionService
	shopping      service.IShoppingListService
	createLimiter middleware.Limiter
	log           *zap.Logger
}

func NewRecipeHandler(
	recipes service.IRecipeService,
	interactions service.IInteractionService,
	shopping service.IShoppingListService,
	createLimiter middleware.Limiter,
	log *zap.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:       recipes,
		interactions:  interactions,
		shopping:      shopping,
		createLimiter: createLimiter,
		log:           log,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	authed := middleware.RequireAuthenticated()

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", h.ListRecipes)
		recipes.POST("/", authed, middleware.RateLimit(h.createLimiter, h.log), h.CreateRecipe)
		recipes.GET("/download_shopping_cart/", authed, h.DownloadShoppingCart)
		recipes.GET("/:id/", h.GetRecipe)
		recipes.PATCH("/:id/", authed, h.UpdateRecipe)
		recipes.DELETE("/:id/", authed, h.DeleteRecipe)
		recipes.GET("/:id/get-link/", h.GetLink)
		recipes.POST("/:id/favorite/", authed, h.AddFavorite)
		recipes.DELETE("/:id/favorite/", authed, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", authed, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart/", authed, h.RemoveFromCart)
	}

	router.GET("/rate-limits/recipe-creation/", authed, middleware.RateLimitStatus(h.createLimiter))
}

// RegisterShortLinks serves the short link redirects at the site root.
func (h *RecipeHandler) RegisterShortLinks(router gin.IRoutes) {
	router.GET("/s/:code", h.FollowShortLink)
}

// recipeFilter reads the listing filters from the query string.
func recipeFilter(c *gin.Context) (types.RecipeFilter, bool) {
	author, ok := queryInt(c, "author")
	if !ok {
		return types.RecipeFilter{}, false
	}
	favorited, ok := queryBool(c, "is_favorited")
	if !ok {
		return types.RecipeFilter{}, false
	}
	inCart, ok := queryBool(c, "is_in_shopping_cart")
	if !ok {
		return types.RecipeFilter{}, false
	}
	return types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		AuthorID:         uint(author),
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
	}, true
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter, ok := recipeFilter(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	recipes, total, err := h.recipes.ListRecipes(c.Request.Context(), middleware.CurrentViewer(c), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondPage(c, recipes, total, page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), middleware.CurrentViewer(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), middleware.CurrentViewer(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), middleware.CurrentViewer(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), middleware.CurrentViewer(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	link, err := h.recipes.ShortLink(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.ShortLinkResponse{ShortLink: link})
}

func (h *RecipeHandler) FollowShortLink(c *gin.Context) {
	id, err := h.recipes.ResolveShortLink(c.Request.Context(), c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d", id))
}

// membership adds or removes the recipe from one of the caller's sets.
type membership struct {
	add    func(c *gin.Context, viewer types.Viewer, id uint) (*types.RecipeMinified, error)
	remove func(c *gin.Context, viewer types.Viewer, id uint) error
}

func (h *RecipeHandler) addTo(c *gin.Context, m membership) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := m.add(c, middleware.CurrentViewer(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) removeFrom(c *gin.Context, m membership) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := m.remove(c, middleware.CurrentViewer(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) favorites() membership {
	return membership{
		add: func(c *gin.Context, viewer types.Viewer, id uint) (*types.RecipeMinified, error) {
			return h.interactions.AddFavorite(c.Request.Context(), viewer, id)
		},
		remove: func(c *gin.Context, viewer types.Viewer, id uint) error {
			return h.interactions.RemoveFavorite(c.Request.Context(), viewer, id)
		},
	}
}

func (h *RecipeHandler) cart() membership {
	return membership{
		add: func(c *gin.Context, viewer types.Viewer, id uint) (*types.RecipeMinified, error) {
			return h.interactions.AddToCart(c.Request.Context(), viewer, id)
		},
		remove: func(c *gin.Context, viewer types.Viewer, id uint) error {
			return h.interactions.RemoveFromCart(c.Request.Context(), viewer, id)
		},
	}
}

func (h *RecipeHandler) AddFavorite(c *gin.Context)    { h.addTo(c, h.favorites()) }
func (h *RecipeHandler) RemoveFavorite(c *gin.Context) { h.removeFrom(c, h.favorites()) }
func (h *RecipeHandler) AddToCart(c *gin.Context)      { h.addTo(c, h.cart()) }
func (h *RecipeHandler) RemoveFromCart(c *gin.Context) { h.removeFrom(c, h.cart()) }

// DownloadShoppingCart sends the caller's aggregated shopping list as a text
// attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shopping.ShoppingList(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ShoppingListFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}
