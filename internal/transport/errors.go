package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

// errorHandler maps service error classes to HTTP responses.
func (s *HTTPServer) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err, c)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Errorw("failed to write error response", "error", err)
	}
}

func (s *HTTPServer) errorResponse(err error, c echo.Context) (int, interface{}) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, detail(msg)
		}
		return he.Code, he.Message
	}

	var fe *service.FieldError
	hasField := errors.As(err, &fe)

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusNotFound, detail("shopping cart is empty")
	case errors.Is(err, service.ErrNotFound):
		if hasField {
			return http.StatusNotFound, detail(fe.Message)
		}
		return http.StatusNotFound, detail("not found")
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, detail("you do not have permission to perform this action")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		if hasField {
			return http.StatusBadRequest, map[string][]string{fe.Field: {fe.Message}}
		}
		return http.StatusBadRequest, map[string][]string{"non_field_errors": {err.Error()}}
	}

	s.logger.Errorw("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return http.StatusInternalServerError, detail("internal server error")
}
