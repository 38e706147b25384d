package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/backend/internal/validation"
)

const testBaseURL = "http://foodgram.test"

// services bundles every service over one database.
type services struct {
	db          *gorm.DB
	images      *testhelpers.MemoryImageStore
	auth        *service.AuthService
	users       *service.UserService
	catalog     *service.CatalogService
	recipes     *service.RecipeService
	interaction *service.InteractionService
	shopping    *service.ShoppingListService
}

func setupServices(t *testing.T) *services {
	t.Helper()
	db := testhelpers.NewSQLiteDB(t)
	images := testhelpers.NewMemoryImageStore()
	v := validation.New()
	log := zap.NewNop()
	return &services{
		db:          db,
		images:      images,
		auth:        service.NewAuthService(db, "test-secret", time.Hour, log),
		users:       service.NewUserService(db, images, v, log),
		catalog:     service.NewCatalogService(db, v, log),
		recipes:     service.NewRecipeService(db, images, v, log, testBaseURL),
		interaction: service.NewInteractionService(db, log),
		shopping:    service.NewShoppingListService(db),
	}
}

// requireCode asserts that err is a domain error with the given code.
func requireCode(t *testing.T, err error, code apperrors.Code) *apperrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr), "expected a domain error, got %v", err)
	require.Equal(t, code, appErr.Code, "unexpected error: %v", err)
	return appErr
}
