package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/metrics"
)

type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int64
}

// AggregateShoppingList sums the ingredient amounts over every recipe in the
// user's cart, one line per (name, unit) pair, ordered by name then unit.
// Pairs that share a name but differ in unit are never merged.
func (s *Recipes) AggregateShoppingList(ctx context.Context, userID uint64) ([]ShoppingItem, error) {
	sql, args, err := squirrel.
		Select("i.name", "i.measurement_unit", "SUM(ri.amount) AS total_amount").
		From("shopping_carts sc").
		Join("recipe_ingredients ri ON ri.recipe_id = sc.recipe_id").
		Join("ingredients i ON i.id = ri.ingredient_id").
		Where(squirrel.Eq{"sc.user_id": userID}).
		GroupBy("i.name", "i.measurement_unit").
		OrderBy("i.name", "i.measurement_unit").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	items := make([]ShoppingItem, 0)
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&items).Error; err != nil {
		metrics.ShoppingLists.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "aggregate shopping list")
	}
	if len(items) == 0 {
		metrics.ShoppingLists.WithLabelValues("empty").Inc()
		return nil, ErrEmptyCart
	}

	metrics.ShoppingLists.WithLabelValues("ok").Inc()
	return items, nil
}
