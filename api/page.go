package api

// Page is the backend's paginated list envelope.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// TotalPages rounds up; an empty result still has one page.
func (p Page[T]) TotalPages() int {
	return TotalPages(p.Total, p.PageSize)
}

func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
