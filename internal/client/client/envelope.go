package client

import (
	"github.com/dmitrijs2005/carpool/internal/apperr"
)

// Envelope is the {success, data, message} wrapper most endpoints use.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Unwrap returns Data, or an API error when the server reported failure in
// a 2xx body.
func (e Envelope[T]) Unwrap() (T, error) {
	if !e.Success {
		var zero T
		return zero, apperr.NewAPIError(e.Message, 0, "", apperr.CodeAPI, nil)
	}
	return e.Data, nil
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether another page follows.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// Page is the body returned by paginated endpoints.
type Page[T any] struct {
	Success    bool       `json:"success"`
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
