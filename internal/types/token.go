package types

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/foodgram/backend/internal/models"
)

// TokenClaims represents the claims in a JWT token. The registered ID claim
// is the token's jti, used for revocation on logout.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
}
