package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. A 1-based "page"
// is accepted in place of offset; an explicit offset wins.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	raw := c.QueryParam("offset")
	offset, _ := strconv.Atoi(raw)
	if raw == "" {
		if page, _ := strconv.Atoi(c.QueryParam("page")); page > 1 {
			offset = (page - 1) * limit
		}
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Response is one page of a list endpoint. NextOffset is omitted on the last
// page.
type Response[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset,omitempty"`
}

func NewResponse[T any](items []T, total, limit, offset int) *Response[T] {
	if items == nil {
		items = []T{}
	}
	resp := &Response[T]{
		Data:   items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	if next := offset + limit; next < total {
		resp.HasMore = true
		resp.NextOffset = &next
	}
	return resp
}
