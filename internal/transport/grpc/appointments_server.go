package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/service/appointments"
	"viewings/backend/internal/store"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
	now func() time.Time
}

var _ AppointmentRequestsHandler = (*AppointmentsServer)(nil)

type appointmentsService interface {
	RequestAppointment(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	ListOutbox(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error)
	ListInbox(ctx context.Context, ownerID string, now time.Time) ([]domain.AppointmentDetails, error)
	Accept(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
		now: time.Now,
	}
}

func (s *AppointmentsServer) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	appt, err := s.svc.RequestAppointment(ctx, appointments.CreateInput{
		RequesterID:   req.RequesterID,
		OwnerID:       req.OwnerID,
		ListingID:     req.ListingID,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		return nil, statusFromError(log, "appointment create failed", err,
			slog.String("requester_id", req.RequesterID),
			slog.String("owner_id", req.OwnerID),
			slog.String("listing_id", req.ListingID),
		)
	}

	log.Info(
		"appointment requested",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("requester_id", appt.RequesterID),
		slog.String("owner_id", appt.OwnerID),
		slog.Time("scheduled_time", appt.ScheduledTime),
	)

	return &CreateAppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *AppointmentsServer) GetAppointment(ctx context.Context, req *GetAppointmentRequest) (*GetAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("appointment_id", req.AppointmentID))
		return nil, status.Error(codes.InvalidArgument, "appointment_id must be a UUID")
	}

	appt, err := s.svc.GetAppointment(ctx, id)
	if err != nil {
		return nil, statusFromError(log, "appointment get failed", err, slog.String("appointment_id", id.String()))
	}
	return &GetAppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *AppointmentsServer) ListOutbox(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListOutbox"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	details, err := s.svc.ListOutbox(ctx, req.UserID)
	if err != nil {
		return nil, statusFromError(log, "outbox list failed", err, slog.String("user_id", req.UserID))
	}

	log.Debug("outbox listed", slog.String("user_id", req.UserID), slog.Int("count", len(details)))
	return toWireList(details), nil
}

func (s *AppointmentsServer) ListInbox(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListInbox"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	details, err := s.svc.ListInbox(ctx, req.UserID, s.now())
	if err != nil {
		return nil, statusFromError(log, "inbox list failed", err, slog.String("user_id", req.UserID))
	}

	log.Debug("inbox listed", slog.String("user_id", req.UserID), slog.Int("count", len(details)))
	return toWireList(details), nil
}

func (s *AppointmentsServer) AcceptAppointment(ctx context.Context, req *SetStatusRequest) (*SetStatusResponse, error) {
	return s.setStatus(ctx, "AcceptAppointment", req, s.svc.Accept)
}

func (s *AppointmentsServer) RejectAppointment(ctx context.Context, req *SetStatusRequest) (*SetStatusResponse, error) {
	return s.setStatus(ctx, "RejectAppointment", req, s.svc.Reject)
}

func (s *AppointmentsServer) setStatus(ctx context.Context, rpc string, req *SetStatusRequest, fn func(context.Context, uuid.UUID) (domain.AppointmentRequest, error)) (*SetStatusResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("appointment_id", req.AppointmentID))
		return nil, status.Error(codes.InvalidArgument, "appointment_id must be a UUID")
	}

	appt, err := fn(ctx, id)
	if err != nil {
		return nil, statusFromError(log, "appointment status update failed", err, slog.String("appointment_id", id.String()))
	}

	log.Info("appointment status set", slog.String("appointment_id", appt.ID.String()), slog.String("status", string(appt.Status)))
	return &SetStatusResponse{Appointment: toWireAppointment(appt)}, nil
}

func statusFromError(log *slog.Logger, failMsg string, err error, attrs ...any) error {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", append(attrs, slog.Any("err", err))...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, appointments.ErrSelfScheduling):
		log.Info("self-scheduling refused", attrs...)
		return status.Error(codes.InvalidArgument, "You can't schedule a viewing of your own listing.")
	case errors.Is(err, store.ErrConflict):
		log.Info("duplicate appointment request", attrs...)
		return status.Error(codes.AlreadyExists, "You already requested a viewing of this listing.")
	case errors.Is(err, appointments.ErrNoAppointments):
		log.Info("no appointments", attrs...)
		return status.Error(codes.NotFound, "no appointments found")
	case errors.Is(err, store.ErrNotFound):
		log.Info("appointment not found", attrs...)
		return status.Error(codes.NotFound, "appointment not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(failMsg, append(attrs, slog.Any("err", err))...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	default:
		log.Error(failMsg, append(attrs, slog.Any("err", err))...)
		return status.Error(codes.Internal, "internal error")
	}
}

func toWireList(details []domain.AppointmentDetails) *ListAppointmentsResponse {
	out := make([]*AppointmentDetail, 0, len(details))
	for _, d := range details {
		out = append(out, toWireDetail(d))
	}
	return &ListAppointmentsResponse{Appointments: out}
}
