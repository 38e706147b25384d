package types

import "github.com/foodgram/backend/internal/models"

// Viewer is the identity a request acts as. The zero Viewer is anonymous.
type Viewer struct {
	UserID uint
	Role   models.Role
}

// Anonymous returns the unauthenticated viewer.
func Anonymous() Viewer {
	return Viewer{}
}

func (v Viewer) Authenticated() bool {
	return v.UserID != 0
}

func (v Viewer) IsAdmin() bool {
	return v.Authenticated() && v.Role == models.RoleAdmin
}
