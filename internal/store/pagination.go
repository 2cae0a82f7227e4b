package store

// Pagination carries page-based pagination parameters for list queries.
// Page is 1-based; a zero value falls back to the defaults below.
type Pagination struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Sort  string `json:"sort,omitempty"` // column name; implementation-defined default
	Desc  bool   `json:"desc,omitempty"`
}

// Pagination defaults applied by Normalize.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize returns a copy with defaults applied and the limit clamped.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page/limit pair.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// PageInfo describes the pagination of a returned result set.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewPageInfo builds a PageInfo from the normalized pagination and the
// total number of matching rows.
func NewPageInfo(p Pagination, totalCount int64) PageInfo {
	n := p.Normalize()
	totalPages := int((totalCount + int64(n.Limit) - 1) / int64(n.Limit))
	return PageInfo{
		Page:       n.Page,
		Limit:      n.Limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
