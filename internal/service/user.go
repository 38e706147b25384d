package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/storage"
	"github.com/foodgram/backend/internal/types"
	"github.com/foodgram/backend/internal/validation"
)

const avatarFolder = "users"

type UserService struct {
	db        *gorm.DB
	images    storage.ImageStore
	validator *validation.Validator
	log       *zap.Logger
}

func NewUserService(db *gorm.DB, images storage.ImageStore, v *validation.Validator, log *zap.Logger) *UserService {
	return &UserService{db: db, images: images, validator: v, log: log}
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.checkIdentityFree(ctx, 0, req.Email, req.Username); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Validation("a user with that email or username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &types.RegisterResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// checkIdentityFree reports taken emails and usernames as field errors.
// exceptID skips the user being updated.
func (s *UserService) checkIdentityFree(ctx context.Context, exceptID uint, email, username string) error {
	details := map[string]string{}
	check := func(column, value string) error {
		if value == "" {
			return nil
		}
		var count int64
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where(column+" = ? AND id <> ?", value, exceptID).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			details[column] = fmt.Sprintf("a user with that %s already exists", column)
		}
		return nil
	}
	if err := check("email", email); err != nil {
		return err
	}
	if err := check("username", username); err != nil {
		return err
	}
	if len(details) > 0 {
		return apperrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

func (s *UserService) findUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

func (s *UserService) GetUser(ctx context.Context, viewer types.Viewer, id uint) (*types.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed, err := subscribedSet(ctx, s.db, viewer.UserID, []uint{user.ID})
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user, subscribed[user.ID])
	return &resp, nil
}

func (s *UserService) ListUsers(ctx context.Context, viewer types.Viewer, page types.PageRequest) ([]types.UserResponse, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page.Bounds()
	var users []models.User
	err := s.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := subscribedSet(ctx, s.db, viewer.UserID, ids)
	if err != nil {
		return nil, 0, err
	}

	results := make([]types.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, toUserResponse(&users[i], subscribed[users[i].ID]))
	}
	return results, total, nil
}

func (s *UserService) Me(ctx context.Context, viewer types.Viewer) (*types.UserResponse, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user, false)
	return &resp, nil
}

// UpdateUser applies an administrator's partial update to any account.
func (s *UserService) UpdateUser(ctx context.Context, viewer types.Viewer, id uint, req *types.UserUpdateRequest) (*types.UserResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	var email, username string
	if req.Email.Set {
		email = strings.ToLower(strings.TrimSpace(req.Email.Value))
		if err := s.validator.Var("email", email, "required,email,max=254"); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if req.Username.Set {
		username = req.Username.Value
		if err := s.validator.Var("username", username, "required,max=150,username"); err != nil {
			return nil, err
		}
		updates["username"] = username
	}
	if req.FirstName.Set {
		if err := s.validator.Var("first_name", req.FirstName.Value, "required,max=150"); err != nil {
			return nil, err
		}
		updates["first_name"] = req.FirstName.Value
	}
	if req.LastName.Set {
		if err := s.validator.Var("last_name", req.LastName.Value, "required,max=150"); err != nil {
			return nil, err
		}
		updates["last_name"] = req.LastName.Value
	}
	if req.Role.Set {
		if !req.Role.Value.Valid() {
			return nil, apperrors.FieldError("role", "must be one of: user moderator admin")
		}
		updates["role"] = req.Role.Value
	}

	if len(updates) > 0 {
		if err := s.checkIdentityFree(ctx, user.ID, email, username); err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return nil, apperrors.Validation("a user with that email or username already exists")
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.log.Info("user updated by admin", zap.Uint("user_id", user.ID), zap.Uint("admin_id", viewer.UserID))
	}

	return s.GetUser(ctx, viewer, user.ID)
}

func (s *UserService) SetPassword(ctx context.Context, viewer types.Viewer, req *types.SetPasswordRequest) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	user, err := s.findUser(ctx, viewer.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, req.CurrentPassword) {
		return apperrors.FieldError("current_password", "is incorrect")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info("password changed", zap.Uint("user_id", user.ID))
	return nil
}

// SetAvatar stores a new avatar and returns its URL. The previous image is
// removed from storage.
func (s *UserService) SetAvatar(ctx context.Context, viewer types.Viewer, req *types.AvatarRequest) (string, error) {
	if err := requireAuth(viewer); err != nil {
		return "", err
	}
	if err := s.validator.Validate(req); err != nil {
		return "", err
	}
	img, err := storage.DecodeDataURI(req.Avatar)
	if err != nil {
		return "", apperrors.FieldError("avatar", err.Error())
	}
	user, err := s.findUser(ctx, viewer.UserID)
	if err != nil {
		return "", err
	}

	previous := user.Avatar
	url, err := s.images.Save(ctx, avatarFolder, img)
	if err != nil {
		return "", apperrors.Internal("failed to store avatar", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", url).Error; err != nil {
		s.discardImage(ctx, url)
		return "", fmt.Errorf("failed to save avatar: %w", err)
	}
	if previous != "" {
		s.discardImage(ctx, previous)
	}
	return url, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, viewer types.Viewer) error {
	if err := requireAuth(viewer); err != nil {
		return err
	}
	user, err := s.findUser(ctx, viewer.UserID)
	if err != nil {
		return err
	}
	previous := user.Avatar
	if previous == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", "").Error; err != nil {
		return fmt.Errorf("failed to remove avatar: %w", err)
	}
	s.discardImage(ctx, previous)
	return nil
}

func (s *UserService) discardImage(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
	}
}
