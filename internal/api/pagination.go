package api

import (
	"math"
	"net/http"
	"strconv"

	v1 "github.com/jdholdren/riffle/api/v1"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// parsePaginationParams parses pagination parameters from an HTTP request.
// Supports page-based pagination (?page=2&limit=10); anything out of range
// falls back to the defaults.
func parsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	// Parse limit with validation
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	// Parse page with validation
	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / maxLimit; page > maxPage {
		page = maxPage
	}

	return page, limit
}

// calculatePaginationMeta builds pagination metadata for responses.
func calculatePaginationMeta(page, limit, total int) v1.Pagination {
	return v1.Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: page < (total+limit-1)/limit,
	}
}
