// File: internal/common/pagination.go
package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize far from int overflow.
	MaxPage = 1_000_000
)

// PaginationQuery is embedded in list queries bound with ShouldBindQuery.
type PaginationQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// clampPage returns the page and page size with defaults applied and the size capped.
func clampPage(page, pageSize int) (int, int) {
	switch {
	case page <= 0:
		page = DefaultPage
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Normalize applies defaults in place and returns pq for chaining.
func (pq *PaginationQuery) Normalize() *PaginationQuery {
	pq.Page, pq.PageSize = clampPage(pq.Page, pq.PageSize)
	return pq
}

// Offset is the row offset of the requested page.
func (pq *PaginationQuery) Offset() int {
	pq.Normalize()
	return (pq.Page - 1) * pq.PageSize
}

// Limit is the clamped page size.
func (pq *PaginationQuery) Limit() int {
	return pq.Normalize().PageSize
}

// GetPaginationParams reads page and page_size from the query string. Unparsable values fall back to defaults.
func GetPaginationParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page"))
	pageSize, _ = strconv.Atoi(c.Query("page_size"))
	return clampPage(page, pageSize)
}
