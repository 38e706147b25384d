package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/types"
)

// Page is the envelope of paginated listings.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageRequest reads the page and limit query parameters.
func pageRequest(c *gin.Context) (types.PageRequest, bool) {
	page, ok := queryInt(c, "page")
	if !ok {
		return types.PageRequest{}, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return types.PageRequest{}, false
	}
	return types.PageRequest{Page: page, Limit: limit}, true
}

// newPage wraps results with absolute links to the neighbouring pages.
func newPage[T any](c *gin.Context, results []T, total int64, req types.PageRequest) Page[T] {
	offset, limit := req.Bounds()
	page := offset/limit + 1
	if results == nil {
		results = []T{}
	}

	out := Page[T]{Count: total, Results: results}
	if int64(page*limit) < total {
		next := pageURL(c, page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		out.Previous = &prev
	}
	return out
}

// pageURL returns the current request URL pointing at page. The first page
// drops the page parameter.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func respondPage[T any](c *gin.Context, results []T, total int64, req types.PageRequest) {
	c.JSON(http.StatusOK, newPage(c, results, total, req))
}
