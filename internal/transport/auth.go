package transport

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

const (
	userContextKey = "user"
	headerXToken   = "X-Token"
)

// AuthMiddleware resolves the request token, if any, to a user. Requests
// without a token continue as anonymous; an unknown token is rejected.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := requestToken(c.Request())
		if token == "" {
			return next(c)
		}

		user, err := s.general.UserByToken(c.Request().Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrNotFound) {
				return err
			}
			return c.JSON(http.StatusUnauthorized, detail("invalid token"))
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := GetUserFromContext(c); err != nil {
			return c.JSON(http.StatusUnauthorized, detail("authentication credentials were not provided"))
		}
		return next(c)
	}
}

// viewerID is the authenticated user id or service.Anonymous.
func viewerID(c echo.Context) uint64 {
	user, err := GetUserFromContext(c)
	if err != nil {
		return service.Anonymous
	}
	return user.ID
}

func requestToken(r *http.Request) string {
	if v := r.Header.Get(echo.HeaderAuthorization); v != "" {
		scheme, token, found := strings.Cut(v, " ")
		if found && strings.EqualFold(scheme, "Token") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(headerXToken))
}
