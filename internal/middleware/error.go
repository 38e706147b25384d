package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/foodgram/backend/internal/errors"
)

// ErrorHandler renders the last error a handler attached with c.Error as a
// JSON body and recovers panics as internal errors. Responses a handler has
// already written are left alone.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while handling request",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				if !c.Writer.Written() {
					AbortWithError(c, apperrors.ErrInternal)
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := apperrors.HTTPStatus(err)
		if status >= 500 {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		c.JSON(status, apperrors.Public(err))
	}
}

// AbortWithError stops the chain and writes err the way ErrorHandler would.
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), apperrors.Public(err))
}
