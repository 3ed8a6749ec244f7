package handlers

import (
	"strconv"

	"pulse/apperr"
	"pulse/database"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	// Keeps the row offset well inside int range.
	maxPage = 1 << 24
)

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

type pageParams struct {
	Page  int
	Limit int
}

// parsePage reads page and limit from the query. Values that are not
// positive integers are rejected; limit is capped at maxLimit.
func parsePage(c *gin.Context) (pageParams, error) {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		return pageParams{}, err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return pageParams{}, err
	}
	if page > maxPage {
		return pageParams{}, apperr.Validation("page is too large")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return pageParams{Page: page, Limit: limit}, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation(key + " must be a positive integer")
	}
	return n, nil
}

func (p pageParams) query(authorID uint) database.PostQuery {
	return database.PostQuery{
		Offset:   (p.Page - 1) * p.Limit,
		Limit:    p.Limit,
		AuthorID: authorID,
	}
}

func (p pageParams) result(total int64) Pagination {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
