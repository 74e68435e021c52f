package transport

import (
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/models"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

func userResp(u *service.UserView) models.UserResp {
	return models.UserResp{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: u.IsSubscribed,
	}
}

func tagResp(t *db.Tag) models.TagResp {
	return models.TagResp{
		ID:    t.ID,
		Name:  t.Name,
		Color: t.Color,
		Slug:  t.Slug,
	}
}

func ingredientResp(i *db.Ingredient) models.IngredientResp {
	return models.IngredientResp{
		ID:              i.ID,
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}

func recipeResp(r *service.RecipeView) models.RecipeResp {
	tags := make([]models.TagResp, len(r.Tags))
	for i := range r.Tags {
		tags[i] = tagResp(&r.Tags[i])
	}
	lines := make([]models.RecipeIngredientResp, len(r.Ingredients))
	for i, l := range r.Ingredients {
		lines[i] = models.RecipeIngredientResp{
			ID:              l.ID,
			Name:            l.Name,
			MeasurementUnit: l.MeasurementUnit,
			Amount:          l.Amount,
		}
	}
	return models.RecipeResp{
		ID:               r.ID,
		Tags:             tags,
		Author:           userResp(&r.Author),
		Ingredients:      lines,
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func miniResp(r *service.MiniRecipe) models.RecipeMiniResp {
	return models.RecipeMiniResp{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func authorResp(a *service.AuthorView) models.AuthorResp {
	recipes := make([]models.RecipeMiniResp, len(a.Recipes))
	for i := range a.Recipes {
		recipes[i] = miniResp(&a.Recipes[i])
	}
	return models.AuthorResp{
		UserResp:     userResp(&a.UserView),
		Recipes:      recipes,
		RecipesCount: a.RecipesCount,
	}
}

func recipeInput(req *models.RecipeReq) service.RecipeInput {
	in := service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		Ingredients: make([]service.IngredientAmount, len(req.Ingredients)),
		Tags:        req.Tags,
	}
	for i, item := range req.Ingredients {
		in.Ingredients[i] = service.IngredientAmount{ID: item.ID, Amount: item.Amount}
	}
	return in
}
