package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

type AuthHandler struct {
	authService service.IAuthService
	validator   *validation.Validator
}

func NewAuthHandler(authService service.IAuthService, v *validation.Validator) *AuthHandler {
	return &AuthHandler{authService: authService, validator: v}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	token := router.Group("/auth/token")
	{
		token.POST("/login/", h.Login)
		token.POST("/logout/", middleware.AuthMiddleware(h.authService), h.Logout)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		_ = c.Error(err)
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.TokenResponse{AuthToken: token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
