package models

import "errors"

// ErrMissingFields marks a stored record that arrived without the fields
// the core requires. Repositories surface it so callers can map it to a
// malformed-record error instead of propagating zero values.
var ErrMissingFields = errors.New("record is missing required fields")

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
