// Package models defines the gorm-mapped persistent entities.
package models

// All lists every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&RevokedToken{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCartItem{},
		&Subscription{},
	}
}
