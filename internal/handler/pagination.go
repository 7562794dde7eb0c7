package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// parsePagination reads page/limit query parameters with defaults and an
// upper bound on limit. Listing endpoints never return everything.
func parsePagination(c echo.Context) (page, limit, offset int) {
	page = defaultPage
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}

	limit = defaultLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset
}

func totalPages(count int64, limit int) int64 {
	pages := count / int64(limit)
	if count%int64(limit) != 0 {
		pages++
	}
	return pages
}
