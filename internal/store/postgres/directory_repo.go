package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"viewings/backend/internal/domain"
)

// DirectoryRepo reads users and listings from tables maintained elsewhere.
type DirectoryRepo struct {
	db bun.IDB
}

func NewDirectoryRepo(db bun.IDB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) FindListing(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.NewSelect().
		Model(&l).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Listing{}, notFound(err)
	}
	return l, nil
}

func (r *DirectoryRepo) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}
