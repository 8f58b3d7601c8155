package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/store"
)

const (
	uniqueViolation  = "23505"
	tripleConstraint = "appointment_requests_triple_key"
)

type AppointmentRepo struct {
	db bun.IDB
}

func NewAppointmentRepo(db bun.IDB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, req domain.AppointmentRequest) (domain.AppointmentRequest, error) {
	m := domain.AppointmentRequest{
		ID:            req.ID,
		RequesterID:   req.RequesterID,
		OwnerID:       req.OwnerID,
		ListingID:     req.ListingID,
		ScheduledTime: req.ScheduledTime.UTC(),
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}

	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err, tripleConstraint) {
			return domain.AppointmentRequest{}, store.ErrConflict
		}
		return domain.AppointmentRequest{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	var m domain.AppointmentRequest
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.AppointmentRequest{}, notFound(err)
	}
	return m, nil
}

func (r *AppointmentRepo) FindDuplicate(ctx context.Context, requesterID, ownerID, listingID string) (domain.AppointmentRequest, error) {
	var m domain.AppointmentRequest
	err := r.db.NewSelect().
		Model(&m).
		Where("requester_id = ?", requesterID).
		Where("owner_id = ?", ownerID).
		Where("listing_id = ?", listingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.AppointmentRequest{}, notFound(err)
	}
	return m, nil
}

func (r *AppointmentRepo) FindByRequester(ctx context.Context, requesterID string) ([]domain.AppointmentRequest, error) {
	var rows []domain.AppointmentRequest
	err := r.db.NewSelect().
		Model(&rows).
		Where("requester_id = ?", requesterID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) FindByOwner(ctx context.Context, ownerID string) ([]domain.AppointmentRequest, error) {
	var rows []domain.AppointmentRequest
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.AppointmentRequest, error) {
	m := domain.AppointmentRequest{ID: id, Status: status}

	res, err := r.db.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.AppointmentRequest{}, notFound(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.AppointmentRequest{}, err
	}
	if affected == 0 {
		return domain.AppointmentRequest{}, store.ErrNotFound
	}
	return m, nil
}

// ExpireIfPending guards the write on the stored status so a concurrent accept
// or reject is never overwritten.
func (r *AppointmentRepo) ExpireIfPending(ctx context.Context, id uuid.UUID, now time.Time) (domain.AppointmentRequest, error) {
	now = now.UTC()
	var m domain.AppointmentRequest

	res, err := r.db.NewUpdate().
		Model(&m).
		Set("status = ?", domain.AppointmentStatusRejected).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", domain.AppointmentStatusPending).
		Where("scheduled_time <= ?", now).
		Returning("*").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.AppointmentRequest{}, err
	}
	if err == nil {
		affected, err := res.RowsAffected()
		if err != nil {
			return domain.AppointmentRequest{}, err
		}
		if affected > 0 {
			return m, nil
		}
	}
	return r.Get(ctx, id)
}

func (r *AppointmentRepo) RejectExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	res, err := r.db.NewUpdate().
		Model((*domain.AppointmentRequest)(nil)).
		Set("status = ?", domain.AppointmentStatusRejected).
		Set("updated_at = ?", now).
		Where("status = ?", domain.AppointmentStatusPending).
		Where("scheduled_time <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
