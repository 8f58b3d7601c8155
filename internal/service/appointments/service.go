package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/store"
)

const defaultEnrichmentConcurrency = 8

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrSelfScheduling   = errors.New("self-scheduling not allowed")
	ErrDuplicateRequest = fmt.Errorf("duplicate request: %w", store.ErrConflict)
	ErrNoAppointments   = fmt.Errorf("no matching appointments: %w", store.ErrNotFound)
)

// StorageError wraps a repository failure that is neither a miss nor a
// uniqueness conflict.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

type Service struct {
	repo store.AppointmentRepository
	dir  store.Directory
	log  *slog.Logger

	enrichConcurrency int
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithEnrichmentConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.enrichConcurrency = n
		}
	}
}

func NewService(repo store.AppointmentRepository, dir store.Directory, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		dir:               dir,
		log:               slog.Default(),
		enrichConcurrency: defaultEnrichmentConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.appointments"))
	return s
}

type CreateInput struct {
	RequesterID   string
	OwnerID       string
	ListingID     string
	ScheduledTime time.Time
}

// RequestAppointment creates a pending request. The scheduled time is not
// bounded; a request in the past is created and expires on the next inbox read.
func (s *Service) RequestAppointment(ctx context.Context, in CreateInput) (domain.AppointmentRequest, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	ownerID := strings.TrimSpace(in.OwnerID)
	listingID := strings.TrimSpace(in.ListingID)

	if requesterID == "" {
		return domain.AppointmentRequest{}, validationError("requester_id is required")
	}
	if ownerID == "" {
		return domain.AppointmentRequest{}, validationError("owner_id is required")
	}
	if listingID == "" {
		return domain.AppointmentRequest{}, validationError("listing_id is required")
	}
	if in.ScheduledTime.IsZero() {
		return domain.AppointmentRequest{}, validationError("scheduled_time is required")
	}
	if requesterID == ownerID {
		return domain.AppointmentRequest{}, ErrSelfScheduling
	}

	_, err := s.repo.FindDuplicate(ctx, requesterID, ownerID, listingID)
	switch {
	case err == nil:
		return domain.AppointmentRequest{}, ErrDuplicateRequest
	case !errors.Is(err, store.ErrNotFound):
		return domain.AppointmentRequest{}, storageError("find duplicate", err)
	}

	created, err := s.repo.Create(ctx, domain.AppointmentRequest{
		RequesterID:   requesterID,
		OwnerID:       ownerID,
		ListingID:     listingID,
		ScheduledTime: in.ScheduledTime.UTC(),
		Status:        domain.AppointmentStatusPending,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.AppointmentRequest{}, ErrDuplicateRequest
		}
		return domain.AppointmentRequest{}, storageError("create", err)
	}
	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	if id == uuid.Nil {
		return domain.AppointmentRequest{}, validationError("appointment_id is required")
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.AppointmentRequest{}, storageError("get", err)
	}
	return req, nil
}

// ListOutbox returns what requesterID has asked for, joined with each listing
// and its owner. Stored statuses are returned as-is.
func (s *Service) ListOutbox(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, validationError("requester_id is required")
	}

	rows, err := s.repo.FindByRequester(ctx, requesterID)
	if err != nil {
		return nil, storageError("find by requester", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoAppointments
	}

	out, err := s.enrich(ctx, rows, func(r domain.AppointmentRequest) string { return r.OwnerID })
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoAppointments
	}
	return out, nil
}

// ListInbox returns the requests addressed to ownerID. Pending requests whose
// time has passed at now are persisted as rejected before being returned.
func (s *Service) ListInbox(ctx context.Context, ownerID string, now time.Time) ([]domain.AppointmentDetails, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}

	rows, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, storageError("find by owner", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoAppointments
	}

	for i := range rows {
		if !domain.Expired(rows[i], now) {
			continue
		}
		// The row may have been accepted or rejected since it was read; the
		// repository only rejects it if it is still pending.
		stored, err := s.repo.ExpireIfPending(ctx, rows[i].ID, now)
		if err != nil {
			return nil, &StorageError{Op: "expire", Err: err}
		}
		if stored.Status == domain.AppointmentStatusRejected {
			s.log.Info(
				"appointment expired",
				slog.String("appointment_id", rows[i].ID.String()),
				slog.String("owner_id", ownerID),
				slog.Time("scheduled_time", rows[i].ScheduledTime),
			)
		} else {
			s.log.Debug(
				"appointment changed before expiry",
				slog.String("appointment_id", rows[i].ID.String()),
				slog.String("status", string(stored.Status)),
			)
		}
		rows[i] = stored
	}

	out, err := s.enrich(ctx, rows, func(r domain.AppointmentRequest) string { return r.RequesterID })
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoAppointments
	}
	return out, nil
}

// Accept and Reject overwrite the status whatever it currently is.
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	return s.setStatus(ctx, id, domain.AppointmentStatusAccepted)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	return s.setStatus(ctx, id, domain.AppointmentStatusRejected)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.AppointmentRequest, error) {
	if id == uuid.Nil {
		return domain.AppointmentRequest{}, validationError("appointment_id is required")
	}
	if !status.Valid() {
		return domain.AppointmentRequest{}, validationError("unknown status " + string(status))
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.AppointmentRequest{}, storageError("update status", err)
	}
	return updated, nil
}

// SweepExpired rejects every pending request scheduled at or before now.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := s.repo.RejectExpired(ctx, now)
	if err != nil {
		return 0, storageError("reject expired", err)
	}
	return n, nil
}
