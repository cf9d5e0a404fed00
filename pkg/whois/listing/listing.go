// Package listing provides the shared pagination, search, and sort
// conventions for admin list endpoints: 1-based page, limit, substring
// search, allow-listed sortBy, and asc|desc sortOrder.
package listing

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Params holds the parsed list query parameters
type Params struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// ParseParams parses pagination query parameters from the request
func ParseParams(c *gin.Context) Params {
	p := Params{
		Page:      1,
		Limit:     DefaultLimit,
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: strings.ToLower(c.Query("sortOrder")),
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		p.Limit = limit
	}

	return p
}

// Offset returns the row offset for the current page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderClause maps SortBy through the column allow-list and returns a
// safe ORDER BY expression. Unknown columns fall back to fallback;
// anything but "asc" orders descending.
func (p Params) OrderClause(allowed map[string]string, fallback string) string {
	column, ok := allowed[p.SortBy]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if p.SortOrder == "asc" {
		direction = "ASC"
	}
	return column + " " + direction
}

// Pagination describes the page of results being returned
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes the pagination envelope for a total row count
func NewPagination(p Params, total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
