package db_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db/dbtest"
)

func newRecipe(t *testing.T, gdb *gorm.DB, author *db.User, name string, tag *db.Tag, ing *db.Ingredient) *db.Recipe {
	t.Helper()

	r := db.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       "/media/x.png",
		Text:        "text",
		CookingTime: 10,
		PubDate:     time.Now(),
		Tags:        []db.Tag{*tag},
		Ingredients: []db.RecipeIngredient{{IngredientID: ing.ID, Amount: 5}},
	}
	require.NoError(t, gdb.Create(&r).Error)
	return &r
}

func count(t *testing.T, gdb *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestUniqueConstraintsTranslate(t *testing.T) {
	gdb := dbtest.New(t)
	u := dbtest.CreateUser(t, gdb, "alice")
	tag := dbtest.CreateTag(t, gdb, "breakfast", "#E26C2D")
	ing := dbtest.CreateIngredient(t, gdb, "flour", "g")
	r := newRecipe(t, gdb, u, "pancakes", tag, ing)

	t.Run("ingredient name and unit", func(t *testing.T) {
		err := gdb.Create(&db.Ingredient{Name: "flour", MeasurementUnit: "g"}).Error
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
		assert.NoError(t, gdb.Create(&db.Ingredient{Name: "flour", MeasurementUnit: "cup"}).Error)
	})

	t.Run("recipe name per author", func(t *testing.T) {
		dup := db.Recipe{AuthorID: u.ID, Name: "pancakes", Image: "i", Text: "t", CookingTime: 1, PubDate: time.Now()}
		assert.ErrorIs(t, gdb.Create(&dup).Error, gorm.ErrDuplicatedKey)

		other := dbtest.CreateUser(t, gdb, "bob")
		same := db.Recipe{AuthorID: other.ID, Name: "pancakes", Image: "i", Text: "t", CookingTime: 1, PubDate: time.Now()}
		assert.NoError(t, gdb.Create(&same).Error)
	})

	t.Run("favorite pair", func(t *testing.T) {
		require.NoError(t, gdb.Create(&db.Favorite{UserID: u.ID, RecipeID: r.ID}).Error)
		err := gdb.Create(&db.Favorite{UserID: u.ID, RecipeID: r.ID}).Error
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("dangling reference", func(t *testing.T) {
		err := gdb.Create(&db.ShoppingCart{UserID: u.ID, RecipeID: 999}).Error
		assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
	})
}

func TestFollowRejectsSelf(t *testing.T) {
	gdb := dbtest.New(t)
	u := dbtest.CreateUser(t, gdb, "alice")

	err := gdb.Create(&db.Follow{UserID: u.ID, AuthorID: u.ID}).Error
	assert.Error(t, err)
}

func TestRecipeDeleteCascades(t *testing.T) {
	gdb := dbtest.New(t)
	u := dbtest.CreateUser(t, gdb, "alice")
	tag := dbtest.CreateTag(t, gdb, "breakfast", "#E26C2D")
	ing := dbtest.CreateIngredient(t, gdb, "flour", "g")
	r := newRecipe(t, gdb, u, "pancakes", tag, ing)
	require.NoError(t, gdb.Create(&db.Favorite{UserID: u.ID, RecipeID: r.ID}).Error)
	require.NoError(t, gdb.Create(&db.ShoppingCart{UserID: u.ID, RecipeID: r.ID}).Error)

	require.NoError(t, gdb.Delete(&db.Recipe{}, r.ID).Error)

	assert.Zero(t, count(t, gdb, &db.RecipeIngredient{}))
	assert.Zero(t, count(t, gdb, &db.RecipeTag{}))
	assert.Zero(t, count(t, gdb, &db.Favorite{}))
	assert.Zero(t, count(t, gdb, &db.ShoppingCart{}))
	assert.Equal(t, int64(1), count(t, gdb, &db.Tag{}))
	assert.Equal(t, int64(1), count(t, gdb, &db.Ingredient{}))
}

func TestRecipeIngredientsForeignKeyCascades(t *testing.T) {
	gdb := dbtest.New(t)

	type fk struct {
		Table    string `gorm:"column:table"`
		From     string `gorm:"column:from"`
		OnDelete string `gorm:"column:on_delete"`
	}
	var fks []fk
	require.NoError(t, gdb.Raw("PRAGMA foreign_key_list(recipe_ingredients)").Scan(&fks).Error)

	byColumn := map[string]string{}
	for _, f := range fks {
		byColumn[f.From] = f.OnDelete
	}
	assert.Equal(t, "CASCADE", byColumn["recipe_id"])
	assert.Equal(t, "CASCADE", byColumn["ingredient_id"])
}

func TestUserDeleteCascades(t *testing.T) {
	gdb := dbtest.New(t)
	alice := dbtest.CreateUser(t, gdb, "alice")
	bob := dbtest.CreateUser(t, gdb, "bob")
	tag := dbtest.CreateTag(t, gdb, "breakfast", "#E26C2D")
	ing := dbtest.CreateIngredient(t, gdb, "flour", "g")
	r := newRecipe(t, gdb, alice, "pancakes", tag, ing)
	require.NoError(t, gdb.Create(&db.Follow{UserID: bob.ID, AuthorID: alice.ID}).Error)
	require.NoError(t, gdb.Create(&db.Favorite{UserID: bob.ID, RecipeID: r.ID}).Error)
	require.NoError(t, gdb.Create(&db.Token{Key: "k", UserID: alice.ID}).Error)

	require.NoError(t, gdb.Delete(&db.User{}, alice.ID).Error)

	assert.Zero(t, count(t, gdb, &db.Recipe{}))
	assert.Zero(t, count(t, gdb, &db.Follow{}))
	assert.Zero(t, count(t, gdb, &db.Favorite{}))
	assert.Zero(t, count(t, gdb, &db.Token{}))
	assert.Equal(t, int64(1), count(t, gdb, &db.User{}))
}
