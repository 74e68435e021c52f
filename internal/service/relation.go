package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/metrics"
)

// Relation is a per-user set of recipes.
type Relation int

const (
	RelationFavorite Relation = iota
	RelationShoppingCart
)

func (r Relation) String() string {
	switch r {
	case RelationFavorite:
		return "favorite"
	case RelationShoppingCart:
		return "shopping_cart"
	default:
		return "unknown"
	}
}

func (r Relation) row(userID, recipeID uint64) interface{} {
	switch r {
	case RelationShoppingCart:
		return &db.ShoppingCart{UserID: userID, RecipeID: recipeID}
	default:
		return &db.Favorite{UserID: userID, RecipeID: recipeID}
	}
}

func (r Relation) model() interface{} {
	switch r {
	case RelationShoppingCart:
		return &db.ShoppingCart{}
	default:
		return &db.Favorite{}
	}
}

// MiniRecipe is the short recipe form returned by relation changes and
// subscription listings.
type MiniRecipe struct {
	ID          uint64
	Name        string
	Image       string
	CookingTime int
}

// AddRelation puts the recipe into the user's set. A second add of the same
// pair fails with ErrAlreadyExists, including when two adds race: the unique
// index decides, not a prior lookup.
func (s *Recipes) AddRelation(ctx context.Context, kind Relation, user *db.User, recipeID uint64) (*MiniRecipe, error) {
	recipe := db.Recipe{}
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		return nil, notFound(err, "recipe", "recipe not found")
	}

	err := s.db.WithContext(ctx).Create(kind.row(user.ID, recipeID)).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, fieldErr("recipe", ErrAlreadyExists, "recipe is already in %s", kind)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return nil, fieldErr("recipe", ErrNotFound, "recipe not found")
	case err != nil:
		return nil, errors.Wrapf(err, "add %s", kind)
	}

	metrics.RelationChanges.WithLabelValues(kind.String(), "add").Inc()
	return miniRecipe(&recipe), nil
}

// RemoveRelation takes the recipe out of the user's set.
func (s *Recipes) RemoveRelation(ctx context.Context, kind Relation, user *db.User, recipeID uint64) error {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&db.Recipe{}).Where("id = ?", recipeID).Count(&exists).Error; err != nil {
		return errors.Wrap(err, "lookup recipe")
	}
	if exists == 0 {
		return fieldErr("recipe", ErrNotFound, "recipe not found")
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", user.ID, recipeID).
		Delete(kind.model())
	if res.Error != nil {
		return errors.Wrapf(res.Error, "remove %s", kind)
	}
	if res.RowsAffected == 0 {
		return fieldErr("recipe", ErrNotFound, "recipe is not in %s", kind)
	}

	metrics.RelationChanges.WithLabelValues(kind.String(), "remove").Inc()
	return nil
}

func miniRecipe(r *db.Recipe) *MiniRecipe {
	return &MiniRecipe{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}
