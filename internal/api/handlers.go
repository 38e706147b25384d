package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/database"
)

// HealthCheck reports whether the API can reach its database.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "ok",
		})
	}
}

// bindJSON decodes the request body, reporting malformed input as a
// validation error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.Validation("invalid request body: " + err.Error()))
		return false
	}
	return true
}

// pathID parses a positive integer path parameter. Malformed ids are reported
// as not found.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(apperrors.NotFound(fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return uint(id), true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		_ = c.Error(apperrors.FieldError(name, "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

// queryBool parses an optional 1/true/0/false query parameter.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		_ = c.Error(apperrors.FieldError(name, "must be one of 1, true, 0, false"))
		return nil, false
	}
	return &v, true
}
