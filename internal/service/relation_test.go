package service

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

func TestRelationAddRemove(t *testing.T) {
	for _, kind := range []Relation{RelationFavorite, RelationShoppingCart} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			r := f.assemble(t, f.alice, f.input("pancakes", IngredientAmount{ID: f.eggs.ID, Amount: 2}))

			mini, err := f.recipes.AddRelation(ctx, kind, f.bob, r.ID)
			require.NoError(t, err)
			assert.Equal(t, MiniRecipe{ID: r.ID, Name: "pancakes", Image: r.Image, CookingTime: 30}, *mini)

			_, err = f.recipes.AddRelation(ctx, kind, f.bob, r.ID)
			assert.ErrorIs(t, err, ErrAlreadyExists)
			assert.ErrorIs(t, err, ErrConflict)

			_, err = f.recipes.AddRelation(ctx, kind, f.bob, 9999)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, f.recipes.RemoveRelation(ctx, kind, f.bob, r.ID))
			assert.ErrorIs(t, f.recipes.RemoveRelation(ctx, kind, f.bob, r.ID), ErrNotFound)
			assert.ErrorIs(t, f.recipes.RemoveRelation(ctx, kind, f.bob, 9999), ErrNotFound)
		})
	}
}

func TestConcurrentFavoriteAdds(t *testing.T) {
	f := newFixture(t)
	r := f.assemble(t, f.alice, f.input("pancakes", IngredientAmount{ID: f.eggs.ID, Amount: 2}))

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.recipes.AddRelation(context.Background(), RelationFavorite, f.bob, r.ID)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, int64(1), countRows(t, f.gdb, &db.Favorite{}))
}

func TestAggregateShoppingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pancakes := f.assemble(t, f.alice, f.input("pancakes",
		IngredientAmount{ID: f.flourG.ID, Amount: 200},
		IngredientAmount{ID: f.eggs.ID, Amount: 2},
	))
	bread := f.assemble(t, f.alice, f.input("bread", IngredientAmount{ID: f.flourG.ID, Amount: 300}))
	muffins := f.assemble(t, f.bob, f.input("muffins", IngredientAmount{ID: f.flourC.ID, Amount: 2}))
	f.assemble(t, f.bob, f.input("not in cart", IngredientAmount{ID: f.flourG.ID, Amount: 1000}))

	for _, id := range []uint64{pancakes.ID, bread.ID, muffins.ID} {
		_, err := f.recipes.AddRelation(ctx, RelationShoppingCart, f.bob, id)
		require.NoError(t, err)
	}

	items, err := f.recipes.AggregateShoppingList(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []ShoppingItem{
		{Name: "eggs", MeasurementUnit: "pcs", TotalAmount: 2},
		{Name: "flour", MeasurementUnit: "cups", TotalAmount: 2},
		{Name: "flour", MeasurementUnit: "grams", TotalAmount: 500},
	}, items)
}

func TestAggregateShoppingListEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.assemble(t, f.alice, f.input("pancakes", IngredientAmount{ID: f.eggs.ID, Amount: 2}))

	items, err := f.recipes.AggregateShoppingList(context.Background(), f.bob.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, items)
}
