package order

import "github.com/mercatolabs/order-orchestrator/internal/service/models/status"

// Query represents filter and pagination parameters for listing orders.
// Page and Limit are 1-based positive integers.
type Query struct {
	Status *status.Status `json:"status,omitempty"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// Offset returns the number of rows to skip for the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Meta carries pagination metadata for a listing result.
type Meta struct {
	Page     int   `json:"page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"lastPage"`
}

// Page is one page of orders plus its pagination metadata.
type Page struct {
	Data []Order `json:"data"`
	Meta Meta    `json:"meta"`
}

// NewMeta computes pagination metadata for a total row count.
func NewMeta(page, limit int, total int64) Meta {
	lastPage := int((total + int64(limit) - 1) / int64(limit))

	return Meta{
		Page:     page,
		Total:    total,
		LastPage: lastPage,
	}
}
