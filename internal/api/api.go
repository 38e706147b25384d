// Package api exposes the HTTP handlers of the recipe service.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/validation"
)

// Deps carries everything the handlers need.
type Deps struct {
	DB           *gorm.DB
	Auth         service.IAuthService
	Users        service.IUserService
	Catalog      service.ICatalogService
	Recipes      service.IRecipeService
	Interactions service.IInteractionService
	Shopping     service.IShoppingListService
	Validator    *validation.Validator
	// CreateLimiter throttles recipe creation per user.
	CreateLimiter middleware.Limiter
	Log           *zap.Logger
}

// SetupAPI registers every route on router.
func SetupAPI(router *gin.Engine, deps Deps) {
	router.GET("/health", HealthCheck(deps.DB))

	recipeHandler := NewRecipeHandler(deps.Recipes, deps.Interactions, deps.Shopping, deps.CreateLimiter, deps.Log)
	recipeHandler.RegisterShortLinks(router)

	root := router.Group("/api")
	NewAuthHandler(deps.Auth, deps.Validator).RegisterRoutes(root)

	v := root.Group("", middleware.OptionalAuth(deps.Auth))
	{
		NewUserHandler(deps.Users, deps.Interactions).RegisterRoutes(v)
		NewCatalogHandler(deps.Catalog).RegisterRoutes(v)
		recipeHandler.RegisterRoutes(v)
	}
}
