package transport

import (
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const censored = "$censored"

// BodyLogger logs every API request with its JSON body, secrets censored.
func (s *HTTPServer) BodyLogger() echo.MiddlewareFunc {
	return middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		Handler: func(c echo.Context, reqBody, _ []byte) {
			s.logger.Infow("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"body", string(censorBody(reqBody)),
			)
		},
	})
}

// censorBody replaces password values and truncates image payloads in a JSON
// object. Anything that is not a JSON object is dropped.
func censorBody(b []byte) []byte {
	if len(b) == 0 {
		return b
	}

	body := map[string]interface{}{}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil
	}
	for k, v := range body {
		switch {
		case strings.Contains(k, "password"):
			body[k] = censored
		case k == "image":
			if s, ok := v.(string); ok && len(s) > 64 {
				body[k] = s[:64] + "..."
			}
		}
	}

	out, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return out
}
