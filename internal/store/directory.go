package store

import (
	"context"

	"viewings/backend/internal/domain"
)

// Directory looks up users and listings owned by other services. Misses are
// reported as ErrNotFound.
type Directory interface {
	FindListing(ctx context.Context, id string) (domain.Listing, error)
	FindUser(ctx context.Context, id string) (domain.User, error)
}
