package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"viewings/backend/internal/domain"
)

// AppointmentRepository persists appointment requests. Every method touches at
// most one statement; Create reports ErrConflict when the (requester, owner,
// listing) triple already exists and UpdateStatus/Get report ErrNotFound for
// unknown ids. ExpireIfPending rejects a single request only if it is still
// pending and due at now, and otherwise returns the stored record untouched.
type AppointmentRepository interface {
	Create(ctx context.Context, req domain.AppointmentRequest) (domain.AppointmentRequest, error)
	Get(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	FindDuplicate(ctx context.Context, requesterID, ownerID, listingID string) (domain.AppointmentRequest, error)
	FindByRequester(ctx context.Context, requesterID string) ([]domain.AppointmentRequest, error)
	FindByOwner(ctx context.Context, ownerID string) ([]domain.AppointmentRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.AppointmentRequest, error)
	ExpireIfPending(ctx context.Context, id uuid.UUID, now time.Time) (domain.AppointmentRequest, error)
	RejectExpired(ctx context.Context, now time.Time) (int, error)
}
