package model

// SortDirection orders a list query.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// IsValid reports whether d is asc or desc.
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// Page holds the pagination and ordering shared by every list query.
// SortColumn is a column name already checked against a whitelist.
type Page struct {
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	SortColumn string        `json:"sortColumn"`
	SortDir    SortDirection `json:"sortDirection"`
}

// Offset returns the row offset for the page, (page-1)*pageSize.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// UserQuery holds criteria for listing users.
type UserQuery struct {
	Page
	Search        string `json:"search,omitempty"` // substring on name/email
	EmailVerified *bool  `json:"emailVerified,omitempty"`
}

// ProductQuery holds criteria for listing products.
type ProductQuery struct {
	Page
	Search string `json:"search,omitempty"` // substring on name/sku/description
	Active *bool  `json:"active,omitempty"`
}

// Pagination describes a page of list results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/pageSize).
func NewPagination(page, pageSize, total int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}
	return p
}
