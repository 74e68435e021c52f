package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware)
	e.GET("/api/recipes/:id/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/api/broken/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot)
	})

	okBefore := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/recipes/:id/", "204"))
	errBefore := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/broken/", "418"))

	for _, path := range []string{"/api/recipes/1/", "/api/recipes/2/", "/api/broken/"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.NotZero(t, rec.Code)
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/recipes/:id/", "204")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/broken/", "418")))
}
