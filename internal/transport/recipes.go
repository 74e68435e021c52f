package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/models"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/report"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

func (s *HTTPServer) RecipeList(c echo.Context) error {
	p, err := s.parsePager(c)
	if err != nil {
		return err
	}
	filter, err := recipeFilter(c)
	if err != nil {
		return err
	}

	recipes, total, err := s.recipes.ListRecipes(c.Request().Context(), viewerID(c), filter, p.Page())
	if err != nil {
		return err
	}

	resp := make([]models.RecipeResp, len(recipes))
	for i := range recipes {
		resp[i] = recipeResp(&recipes[i])
	}
	return c.JSON(http.StatusOK, p.envelope(c, total, resp))
}

func recipeFilter(c echo.Context) (service.RecipeFilter, error) {
	f := service.RecipeFilter{
		TagSlugs:         c.QueryParams()["tags"],
		IsFavorited:      flag(c.QueryParam("is_favorited")),
		IsInShoppingCart: flag(c.QueryParam("is_in_shopping_cart")),
	}
	if v := c.QueryParam("author"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, map[string][]string{
				"author": {"select a valid author"},
			})
		}
		f.AuthorID = id
	}
	return f, nil
}

func flag(v string) bool {
	return v == "1" || v == "true"
}

func (s *HTTPServer) RecipeGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	r, err := s.recipes.GetRecipe(c.Request().Context(), viewerID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipeResp(r))
}

func (s *HTTPServer) RecipeCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := models.RecipeReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	r, err := s.recipes.AssembleRecipe(c.Request().Context(), user, recipeInput(&req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, recipeResp(r))
}

func (s *HTTPServer) RecipeUpdate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := models.RecipeReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	r, err := s.recipes.UpdateRecipe(c.Request().Context(), user, id, recipeInput(&req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipeResp(r))
}

func (s *HTTPServer) RecipeDelete(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.recipes.DeleteRecipe(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) relationAdd(kind service.Relation) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		if err != nil {
			return err
		}
		id, err := GetAndParseParam(c, "id")
		if err != nil {
			return err
		}

		mini, err := s.recipes.AddRelation(c.Request().Context(), kind, user, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, miniResp(mini))
	}
}

func (s *HTTPServer) relationRemove(kind service.Relation) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		if err != nil {
			return err
		}
		id, err := GetAndParseParam(c, "id")
		if err != nil {
			return err
		}

		if err := s.recipes.RemoveRelation(c.Request().Context(), kind, user, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *HTTPServer) DownloadShoppingCart(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{
			"format": {"supported formats are txt and csv"},
		})
	}

	items, err := s.recipes.AggregateShoppingList(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	body, err := report.Render(format, items)
	if err != nil {
		return errors.Wrap(err, "render shopping list")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+format.Filename()+`"`)
	return c.Blob(http.StatusOK, format.ContentType(), body)
}
