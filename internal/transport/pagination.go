package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/models"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

const maxPageSize = 100

type pager struct {
	page  int
	limit int
}

// parsePager reads ?page and ?limit, both positive.
func (s *HTTPServer) parsePager(c echo.Context) (pager, error) {
	p := pager{page: 1, limit: s.cfg.PageSize}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, echo.NewHTTPError(http.StatusNotFound, "invalid page")
		}
		p.page = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.limit = n
	}
	return p, nil
}

func (p pager) Page() service.Page {
	return service.Page{Limit: p.limit, Offset: (p.page - 1) * p.limit}
}

// envelope wraps results with the total count and links to the neighbour pages.
func (p pager) envelope(c echo.Context, count int64, results interface{}) models.PageResp {
	resp := models.PageResp{Count: count, Results: results}
	if int64(p.page*p.limit) < count {
		resp.Next = pageURL(c, p.page+1)
	}
	if p.page > 1 {
		resp.Previous = pageURL(c, p.page-1)
	}
	return resp
}

func pageURL(c echo.Context, page int) *string {
	u := *c.Request().URL
	u.Scheme = c.Scheme()
	u.Host = c.Request().Host
	q := u.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
