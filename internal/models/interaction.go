package models

import (
	"time"
)

type Favorite struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
}

func (Favorite) TableName() string {
	return "favorites"
}

type ShoppingCartItem struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
}

func (ShoppingCartItem) TableName() string {
	return "shopping_cart"
}

// Subscription means UserID follows AuthorID.
type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_user_author"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_user_author;index"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
