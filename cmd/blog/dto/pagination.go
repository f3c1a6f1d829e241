package dto

// Pagination is a generic pagination envelope for list results.
// Page is 1-based; NextPage is nil on the last page.
type Pagination[T any] struct {
	Data     []T   `json:"data"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	NextPage *int  `json:"next_page"`
}

// PaginationPostSummaryDTO is a concrete type for swagger docs.
type PaginationPostSummaryDTO struct {
	Data     []PostSummary `json:"data"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
	NextPage *int          `json:"next_page"`
}
