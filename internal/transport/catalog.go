package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/models"
)

func (s *HTTPServer) TagList(c echo.Context) error {
	tags, err := s.catalog.ListTags(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]models.TagResp, len(tags))
	for i := range tags {
		resp[i] = tagResp(&tags[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	tag, err := s.catalog.GetTag(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tagResp(tag))
}

func (s *HTTPServer) IngredientList(c echo.Context) error {
	ings, err := s.catalog.ListIngredients(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}

	resp := make([]models.IngredientResp, len(ings))
	for i := range ings {
		resp[i] = ingredientResp(&ings[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IngredientGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	ing, err := s.catalog.GetIngredient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ingredientResp(ing))
}
