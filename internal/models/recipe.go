package models

import (
	"time"
)

type Recipe struct {
	ID uint `gorm:"primaryKey"`
	// CreatedAt is the publication time; listings are ordered by it.
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	AuthorID    uint   `gorm:"not null;index"`
	Author      User   `gorm:"foreignKey:AuthorID"`
	Name        string `gorm:"size:256;not null"`
	Text        string `gorm:"type:text;not null"`
	Image       string `gorm:"size:512;not null"`
	CookingTime int    `gorm:"not null"`
	ShortCode   string `gorm:"size:16;not null;uniqueIndex"`

	Tags        []Tag              `gorm:"many2many:recipe_tags;"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID"`
}

// RecipeTag is a row of the recipe_tags join table.
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey;index"`
}

func (RecipeTag) TableName() string {
	return "recipe_tags"
}

// RecipeIngredient is one line of a recipe. An ingredient appears at most
// once per recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID"`
	Amount       int        `gorm:"not null"`
}
