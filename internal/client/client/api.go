package client

import (
	"context"
	"net/url"

	"github.com/dmitrijs2005/carpool/internal/client/models"
)

// API is the request surface used by the rest of the application.
type API interface {
	Get(ctx context.Context, path string, out any, opts ...CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...CallOption) error
	Put(ctx context.Context, path string, body, out any, opts ...CallOption) error
	Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error
	Delete(ctx context.Context, path string, out any, opts ...CallOption) error
	GetPaginated(ctx context.Context, path string, page, limit int, params url.Values, out any, opts ...CallOption) error

	Login(ctx context.Context, creds models.Credentials) (*models.Session, error)
	Logout(ctx context.Context) error
}

var _ API = (*Client)(nil)
