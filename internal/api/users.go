package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

// UserHandler serves accounts, avatars and subscriptions.
type UserHandler struct {
	users        service.IUserService
	interactions service.IInteractionService
}

func NewUserHandler(users service.IUserService, interactions service.IInteractionService) *UserHandler {
	return &UserHandler{users: users, interactions: interactions}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	authed := middleware.RequireAuthenticated()

	users := router.Group("/users")
	{
		users.GET("/", h.ListUsers)
		users.POST("/", h.Register)
		users.GET("/me/", authed, h.Me)
		users.PUT("/me/avatar/", authed, h.SetAvatar)
		users.DELETE("/me/avatar/", authed, h.DeleteAvatar)
		users.POST("/set_password/", authed, h.SetPassword)
		users.GET("/subscriptions/", authed, h.Subscriptions)
		users.GET("/:id/", h.GetUser)
		users.PATCH("/:id/", authed, middleware.RequireAdmin(), h.UpdateUser)
		users.POST("/:id/subscribe/", authed, h.Subscribe)
		users.DELETE("/:id/subscribe/", authed, h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	users, total, err := h.users.ListUsers(c.Request.Context(), middleware.CurrentViewer(c), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondPage(c, users, total, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), middleware.CurrentViewer(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.UserUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateUser(c.Request.Context(), middleware.CurrentViewer(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), middleware.CurrentViewer(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if !bindJSON(c, &req) {
		return
	}
	url, err := h.users.SetAvatar(c.Request.Context(), middleware.CurrentViewer(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.AvatarResponse{Avatar: url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.users.DeleteAvatar(c.Request.Context(), middleware.CurrentViewer(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), middleware.CurrentViewer(c), &req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "recipes_limit")
	if !ok {
		return
	}
	sub, err := h.interactions.Subscribe(c.Request.Context(), middleware.CurrentViewer(c), id, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.interactions.Unsubscribe(c.Request.Context(), middleware.CurrentViewer(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "recipes_limit")
	if !ok {
		return
	}
	subs, total, err := h.interactions.Subscriptions(c.Request.Context(), middleware.CurrentViewer(c), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondPage(c, subs, total, page)
}
