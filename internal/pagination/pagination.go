// Package pagination normalises page/pageSize query parameters.
//
// Nothing here returns an error: any input, however malformed, becomes a
// usable page request.
package pagination

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*pageSize from overflowing int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Params is a normalised page request.
type Params struct {
	Page     int
	PageSize int
	Offset   int
}

// Meta describes a page of a result set. It is serialised as the
// "pagination" member of list responses.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// Parse turns raw query values into Params. Unparseable or non-positive values
// fall back to the defaults; pageSize is capped at MaxPageSize and page at
// MaxPage.
func Parse(page, pageSize string) Params {
	p := parsePositive(page, DefaultPage)
	size := parsePositive(pageSize, DefaultPageSize)
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if p > MaxPage {
		p = MaxPage
	}
	return Params{
		Page:     p,
		PageSize: size,
		Offset:   (p - 1) * size,
	}
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// TotalPages is ceil(totalCount / pageSize), and 0 for an empty set.
func TotalPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// NewMeta builds the metadata for p over a set of totalCount rows.
// A page past the end is still described normally; it just has no items.
func NewMeta(p Params, totalCount int) Meta {
	return Meta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: totalCount,
		TotalPages: TotalPages(totalCount, p.PageSize),
	}
}
