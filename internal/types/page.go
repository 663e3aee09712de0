package types

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageQuery selects a page; Page is zero based.
type PageQuery struct {
	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

// Normalize clamps page and size into accepted bounds.
func (p PageQuery) Normalize() PageQuery {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the page.
func (p PageQuery) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

// Page is one page of results.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
