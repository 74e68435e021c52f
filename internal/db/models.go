package db

import (
	"time"
)

const (
	// MinAmount and MaxAmount bound both ingredient amounts and cooking time.
	MinAmount = 1
	MaxAmount = 99999

	// ReservedUsername can never be registered, it would shadow /users/me.
	ReservedUsername = "me"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Email     string `gorm:"size:254;uniqueIndex:uidx_users_email;not null"`
		Username  string `gorm:"size:150;uniqueIndex:uidx_users_username;not null"`
		FirstName string `gorm:"size:150;not null"`
		LastName  string `gorm:"size:150;not null"`
		Password  string `gorm:"not null"`
	}

	// Token is an opaque API key issued on login. A user may hold several.
	Token struct {
		Key       string `gorm:"primaryKey;size:64"`
		UserID    uint64 `gorm:"not null;index"`
		User      User   `gorm:"constraint:OnDelete:CASCADE"`
		CreatedAt time.Time
	}

	Follow struct {
		GormForkedModel
		UserID   uint64 `gorm:"not null;uniqueIndex:uidx_follows_user_author;check:chk_follows_self,user_id <> author_id"`
		User     User   `gorm:"constraint:OnDelete:CASCADE"`
		AuthorID uint64 `gorm:"not null;uniqueIndex:uidx_follows_user_author;index"`
		Author   User   `gorm:"constraint:OnDelete:CASCADE"`
	}

	Tag struct {
		GormForkedModel
		Name  string `gorm:"size:200;uniqueIndex:uidx_tags_name;not null"`
		Color string `gorm:"size:7;uniqueIndex:uidx_tags_color;not null"`
		Slug  string `gorm:"size:200;uniqueIndex:uidx_tags_slug;not null"`
	}

	Ingredient struct {
		GormForkedModel
		Name            string `gorm:"size:200;uniqueIndex:uidx_ingredients_name_unit;index;not null"`
		MeasurementUnit string `gorm:"size:200;uniqueIndex:uidx_ingredients_name_unit;not null"`
	}

	Recipe struct {
		GormForkedModel
		AuthorID    uint64             `gorm:"not null;uniqueIndex:uidx_recipes_author_name"`
		Author      User               `gorm:"constraint:OnDelete:CASCADE"`
		Name        string             `gorm:"size:200;uniqueIndex:uidx_recipes_author_name;not null"`
		Image       string             `gorm:"not null"`
		Text        string             `gorm:"not null"`
		CookingTime int                `gorm:"not null"`
		PubDate     time.Time          `gorm:"not null;index"`
		Tags        []Tag              `gorm:"many2many:recipe_tags"`
		Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	}

	// RecipeTag is the explicit join table behind Recipe.Tags so that its
	// foreign keys cascade together with the recipe and the tag.
	RecipeTag struct {
		RecipeID uint64 `gorm:"primaryKey"`
		Recipe   Recipe `gorm:"constraint:OnDelete:CASCADE"`
		TagID    uint64 `gorm:"primaryKey"`
		Tag      Tag    `gorm:"constraint:OnDelete:CASCADE"`
	}

	RecipeIngredient struct {
		GormForkedModel
		RecipeID     uint64     `gorm:"not null;uniqueIndex:uidx_recipe_ingredients_pair"`
		Recipe       Recipe     `gorm:"constraint:OnDelete:CASCADE"`
		IngredientID uint64     `gorm:"not null;uniqueIndex:uidx_recipe_ingredients_pair;index"`
		Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE"`
		Amount       int        `gorm:"not null"`
	}

	Favorite struct {
		GormForkedModel
		UserID   uint64 `gorm:"not null;uniqueIndex:uidx_favorites_user_recipe"`
		User     User   `gorm:"constraint:OnDelete:CASCADE"`
		RecipeID uint64 `gorm:"not null;uniqueIndex:uidx_favorites_user_recipe;index"`
		Recipe   Recipe `gorm:"constraint:OnDelete:CASCADE"`
	}

	ShoppingCart struct {
		GormForkedModel
		UserID   uint64 `gorm:"not null;uniqueIndex:uidx_shopping_carts_user_recipe"`
		User     User   `gorm:"constraint:OnDelete:CASCADE"`
		RecipeID uint64 `gorm:"not null;uniqueIndex:uidx_shopping_carts_user_recipe;index"`
		Recipe   Recipe `gorm:"constraint:OnDelete:CASCADE"`
	}
)

// Models lists every table in dependency order for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Token{},
		&Follow{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeTag{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCart{},
	}
}
