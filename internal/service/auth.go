package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/foodgram/backend/internal/errors"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login exchanges an email and password for a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.InvalidCredentials("unable to log in with provided credentials")
	}
	if err != nil {
		return "", err
	}

	if !checkPassword(user.PasswordHash, password) {
		return "", apperrors.InvalidCredentials("unable to log in with provided credentials")
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return "", err
	}
	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return token, nil
}

// GenerateToken signs a token for user with a fresh jti.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, expiry and revocation of a token and
// refreshes the role from the user's current record.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, apperrors.Unauthorized("invalid token claims")
	}

	var revoked int64
	if err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti = ?", claims.ID).Count(&revoked).Error; err != nil {
		return nil, err
	}
	if revoked > 0 {
		return nil, apperrors.Unauthorized("token has been revoked")
	}

	var user models.User
	err = s.db.WithContext(ctx).Select("id", "role").First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Unauthorized("user not found")
	}
	if err != nil {
		return nil, err
	}
	claims.Role = user.Role
	return claims, nil
}

// Logout revokes the token the claims were read from. Revoking twice is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.ErrUnauthorized
	}

	expires := s.now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RevokedToken{JTI: claims.ID, ExpiresAt: expires}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if n, err := s.PurgeExpiredRevocations(ctx); err != nil {
		s.log.Warn("failed to purge expired revocations", zap.Error(err))
	} else if n > 0 {
		s.log.Debug("purged expired revocations", zap.Int64("count", n))
	}

	s.log.Info("user logged out", zap.Uint("user_id", claims.UserID))
	return nil
}

// PurgeExpiredRevocations drops revocations of tokens that have expired anyway.
func (s *AuthService) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
