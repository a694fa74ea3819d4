package models

// Pagination holds pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

// DefaultPagination returns default pagination settings.
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 25,
	}
}

// Offset calculates the SQL offset for the current page.
func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

// Limit returns the page size clamped to [1, 100].
func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 25
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// TotalPages calculates the number of pages needed for total rows.
func (p Pagination) TotalPages(total int) int {
	size := p.Limit()
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}
