package models

type UserCreateReq struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,max=150"`
}

type UserCreatedResp struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserResp struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type AuthorResp struct {
	UserResp
	Recipes      []RecipeMiniResp `json:"recipes"`
	RecipesCount int64            `json:"recipes_count"`
}

type TokenLoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResp struct {
	AuthToken string `json:"auth_token"`
}

type SetPasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=150"`
}

type TagResp struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type IngredientResp struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type RecipeIngredientReq struct {
	ID     uint64 `json:"id" validate:"required"`
	Amount int    `json:"amount" validate:"min=1,max=99999"`
}

// RecipeReq is the body of recipe create and update. Image is a base64
// data URI; it may be omitted on update.
type RecipeReq struct {
	Ingredients []RecipeIngredientReq `json:"ingredients" validate:"required,min=1,dive"`
	Tags        []uint64              `json:"tags" validate:"required,min=1,dive,required"`
	Image       string                `json:"image"`
	Name        string                `json:"name" validate:"required,max=200"`
	Text        string                `json:"text" validate:"required"`
	CookingTime int                   `json:"cooking_time" validate:"min=1,max=99999"`
}

type RecipeIngredientResp struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type RecipeResp struct {
	ID               uint64                 `json:"id"`
	Tags             []TagResp              `json:"tags"`
	Author           UserResp               `json:"author"`
	Ingredients      []RecipeIngredientResp `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

type RecipeMiniResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type PageResp struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}
