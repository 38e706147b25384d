package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/types"
)

// CartLine is one ingredient line of a recipe in a user's cart.
type CartLine struct {
	Name   string
	Unit   string
	Amount int
}

// Aggregate sums lines sharing a name and unit and orders the result by name,
// then unit. The same name in different units stays separate.
func Aggregate(lines []CartLine) []types.ShoppingListItem {
	type key struct{ name, unit string }
	totals := make(map[key]int)
	for _, line := range lines {
		totals[key{line.Name, line.Unit}] += line.Amount
	}

	items := make([]types.ShoppingListItem, 0, len(totals))
	for k, total := range totals {
		items = append(items, types.ShoppingListItem{Name: k.name, Unit: k.unit, Total: total})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Unit < items[j].Unit
	})
	return items
}

// RenderShoppingList formats items as a plain-text list, one per line.
func RenderShoppingList(items []types.ShoppingListItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", item.Name, item.Unit, item.Total)
	}
	return b.String()
}

type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// ShoppingList aggregates the ingredients of every recipe in the viewer's cart.
func (s *ShoppingListService) ShoppingList(ctx context.Context, viewer types.Viewer) ([]types.ShoppingListItem, error) {
	if err := requireAuth(viewer); err != nil {
		return nil, err
	}

	var lines []CartLine
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, recipe_ingredients.amount AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart ON shopping_cart.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart.user_id = ?", viewer.UserID).
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}
	return Aggregate(lines), nil
}
