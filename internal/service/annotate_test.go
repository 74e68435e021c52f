package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

func TestAnnotateViewerState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pancakes := f.assemble(t, f.alice, f.input("pancakes", IngredientAmount{ID: f.eggs.ID, Amount: 2}))
	omelette := f.assemble(t, f.alice, f.input("omelette", IngredientAmount{ID: f.eggs.ID, Amount: 3}))

	_, err := f.recipes.AddRelation(ctx, RelationFavorite, f.bob, pancakes.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddRelation(ctx, RelationShoppingCart, f.bob, omelette.ID)
	require.NoError(t, err)
	require.NoError(t, f.gdb.Create(&db.Follow{UserID: f.bob.ID, AuthorID: f.alice.ID}).Error)

	flags := func(views []RecipeView) map[string][2]bool {
		res := make(map[string][2]bool, len(views))
		for _, v := range views {
			res[v.Name] = [2]bool{v.IsFavorited, v.IsInShoppingCart}
		}
		return res
	}

	t.Run("viewer sees own state", func(t *testing.T) {
		views, total, err := f.recipes.ListRecipes(ctx, f.bob.ID, RecipeFilter{}, Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, map[string][2]bool{
			"pancakes": {true, false},
			"omelette": {false, true},
		}, flags(views))
		for _, v := range views {
			assert.True(t, v.Author.IsSubscribed)
		}
	})

	t.Run("other viewer sees nothing of bob", func(t *testing.T) {
		views, _, err := f.recipes.ListRecipes(ctx, f.alice.ID, RecipeFilter{}, Page{})
		require.NoError(t, err)
		assert.Equal(t, map[string][2]bool{
			"pancakes": {false, false},
			"omelette": {false, false},
		}, flags(views))
	})

	t.Run("anonymous", func(t *testing.T) {
		views, _, err := f.recipes.ListRecipes(ctx, Anonymous, RecipeFilter{}, Page{})
		require.NoError(t, err)
		for _, v := range views {
			assert.False(t, v.IsFavorited)
			assert.False(t, v.IsInShoppingCart)
			assert.False(t, v.Author.IsSubscribed)
		}

		one, err := f.recipes.GetRecipe(ctx, Anonymous, pancakes.ID)
		require.NoError(t, err)
		assert.False(t, one.IsFavorited)
	})
}

func TestListRecipesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.input("pancakes", IngredientAmount{ID: f.eggs.ID, Amount: 2})
	first.Tags = []uint64{f.lunch.ID}
	pancakes := f.assemble(t, f.alice, first)

	second := f.input("stew", IngredientAmount{ID: f.flourG.ID, Amount: 20})
	second.Tags = []uint64{f.dinner.ID}
	stew := f.assemble(t, f.bob, second)

	_, err := f.recipes.AddRelation(ctx, RelationFavorite, f.alice, stew.ID)
	require.NoError(t, err)

	names := func(views []RecipeView) []string {
		res := make([]string, len(views))
		for i := range views {
			res[i] = views[i].Name
		}
		return res
	}

	tests := []struct {
		name   string
		viewer uint64
		filter RecipeFilter
		want   []string
	}{
		{name: "all newest first", viewer: Anonymous, want: []string{"stew", "pancakes"}},
		{name: "by author", viewer: Anonymous, filter: RecipeFilter{AuthorID: f.alice.ID}, want: []string{"pancakes"}},
		{name: "by tag", viewer: Anonymous, filter: RecipeFilter{TagSlugs: []string{"dinner"}}, want: []string{"stew"}},
		{name: "any of tags", viewer: Anonymous, filter: RecipeFilter{TagSlugs: []string{"dinner", "lunch"}}, want: []string{"stew", "pancakes"}},
		{name: "favorited", viewer: f.alice.ID, filter: RecipeFilter{IsFavorited: true}, want: []string{"stew"}},
		{name: "favorited anonymous", viewer: Anonymous, filter: RecipeFilter{IsFavorited: true}, want: []string{}},
		{name: "in cart", viewer: f.alice.ID, filter: RecipeFilter{IsInShoppingCart: true}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, total, err := f.recipes.ListRecipes(ctx, tt.viewer, tt.filter, Page{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(views))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}

	t.Run("page", func(t *testing.T) {
		views, total, err := f.recipes.ListRecipes(ctx, Anonymous, RecipeFilter{}, Page{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, views, 1)
		assert.Equal(t, pancakes.ID, views[0].ID)
	})
}

func TestListRecipesQueryCountIndependentOfPageSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		r := f.assemble(t, f.alice, f.input(fmt.Sprintf("recipe %02d", i),
			IngredientAmount{ID: f.eggs.ID, Amount: 1},
			IngredientAmount{ID: f.flourG.ID, Amount: 100},
		))
		if i%2 == 0 {
			_, err := f.recipes.AddRelation(ctx, RelationFavorite, f.bob, r.ID)
			require.NoError(t, err)
		}
	}

	statements := 0
	counter := func(*gorm.DB) { statements++ }
	require.NoError(t, f.gdb.Callback().Query().After("gorm:query").Register("test:count_query", counter))
	require.NoError(t, f.gdb.Callback().Row().After("gorm:row").Register("test:count_row", counter))
	require.NoError(t, f.gdb.Callback().Raw().After("gorm:raw").Register("test:count_raw", counter))

	list := func(limit int) int {
		statements = 0
		views, total, err := f.recipes.ListRecipes(ctx, f.bob.ID, RecipeFilter{}, Page{Limit: limit})
		require.NoError(t, err)
		require.Len(t, views, limit)
		assert.Equal(t, int64(20), total)
		return statements
	}

	small := list(1)
	large := list(20)
	assert.Positive(t, small)
	assert.Equal(t, small, large)
}
