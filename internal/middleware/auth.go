package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/types"
)

// Context keys set by the authentication middleware.
const (
	ContextUserIDKey = "user_id"
	ContextClaimsKey = "claims"
)

// TokenValidator is an interface for validating auth tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// extractToken reads "Token <t>" or "Bearer <t>" from an Authorization header.
func extractToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate validates the request's token, if any, and stores the claims.
// It reports false after aborting the request.
func authenticate(c *gin.Context, validator TokenValidator, required bool) bool {
	header := c.GetHeader("Authorization")
	if header == "" {
		if required {
			AbortWithError(c, apperrors.Unauthorized("authentication credentials were not provided"))
			return false
		}
		return true
	}

	token, ok := extractToken(header)
	if !ok {
		AbortWithError(c, apperrors.Unauthorized("invalid authorization header format"))
		return false
	}

	claims, err := validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return false
	}

	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextClaimsKey, claims)
	return true
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, validator, true) {
			c.Next()
		}
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, validator, false) {
			c.Next()
		}
	}
}

// RequireAuthenticated rejects anonymous callers. It must run after
// OptionalAuth.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentViewer(c).Authenticated() {
			AbortWithError(c, apperrors.Unauthorized("authentication credentials were not provided"))
			return
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware or OptionalAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentViewer(c)
		if !viewer.Authenticated() {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !viewer.IsAdmin() {
			AbortWithError(c, apperrors.Forbidden("administrator access required"))
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the claims of the authenticated caller.
func CurrentClaims(c *gin.Context) (*types.TokenClaims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}

// CurrentViewer returns the caller's identity, anonymous when no token was sent.
func CurrentViewer(c *gin.Context) types.Viewer {
	claims, ok := CurrentClaims(c)
	if !ok {
		return types.Anonymous()
	}
	return types.Viewer{UserID: claims.UserID, Role: claims.Role}
}
