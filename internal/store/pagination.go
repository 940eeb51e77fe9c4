package store

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int // Items per page (defaults to 50 with a maximum of 200)
	Offset int // Number of items to skip
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: 50}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
