package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/models"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

func (s *HTTPServer) UserRegister(c echo.Context) error {
	req := models.UserCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := s.general.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, models.UserCreatedResp{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

func (s *HTTPServer) TokenLogin(c echo.Context) error {
	req := models.TokenLoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.general.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrLoginUserNotFound) || errors.Is(err, service.ErrLoginPasswordDoesNotMatch) {
			return c.JSON(http.StatusBadRequest, map[string][]string{
				"non_field_errors": {"unable to log in with provided credentials"},
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, models.TokenResp{AuthToken: token})
}

func (s *HTTPServer) TokenLogout(c echo.Context) error {
	if err := s.general.Logout(c.Request().Context(), requestToken(c.Request())); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) UserList(c echo.Context) error {
	p, err := s.parsePager(c)
	if err != nil {
		return err
	}

	users, total, err := s.general.ListUsers(c.Request().Context(), viewerID(c), p.Page())
	if err != nil {
		return err
	}

	resp := make([]models.UserResp, len(users))
	for i := range users {
		resp[i] = userResp(&users[i])
	}
	return c.JSON(http.StatusOK, p.envelope(c, total, resp))
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	u, err := s.general.GetUser(c.Request().Context(), viewerID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp(u))
}

func (s *HTTPServer) UserMe(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	u, err := s.general.GetUser(c.Request().Context(), user.ID, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp(u))
}

func (s *HTTPServer) UserSetPassword(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := models.SetPasswordReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.general.SetPassword(c.Request().Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) Subscriptions(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	p, err := s.parsePager(c)
	if err != nil {
		return err
	}
	limit, err := recipesLimit(c)
	if err != nil {
		return err
	}

	authors, total, err := s.general.Subscriptions(c.Request().Context(), user, p.Page(), limit)
	if err != nil {
		return err
	}

	resp := make([]models.AuthorResp, len(authors))
	for i := range authors {
		resp[i] = authorResp(&authors[i])
	}
	return c.JSON(http.StatusOK, p.envelope(c, total, resp))
}

func (s *HTTPServer) Subscribe(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	limit, err := recipesLimit(c)
	if err != nil {
		return err
	}

	author, err := s.general.Subscribe(c.Request().Context(), user, id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authorResp(author))
}

func (s *HTTPServer) Unsubscribe(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.general.Unsubscribe(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit; zero means no limit.
func recipesLimit(c echo.Context) (int, error) {
	v := c.QueryParam("recipes_limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "recipes_limit must be a non-negative integer")
	}
	return n, nil
}
