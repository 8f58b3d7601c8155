package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/service/appointments"
	"viewings/backend/internal/store"
)

type appointmentsService interface {
	RequestAppointment(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	ListOutbox(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error)
	ListInbox(ctx context.Context, ownerID string, now time.Time) ([]domain.AppointmentDetails, error)
	Accept(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
}

type Server struct {
	svc      appointmentsService
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(svc appointmentsService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:      svc,
		log:      log.With(slog.String("component", "http.appointments")),
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/appointments", s.createAppointment).Methods(http.MethodPost)
	api.HandleFunc("/users/{requesterId}/schedule/{ownerId}/{listingId}/{date}", s.createAppointmentFromPath).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/appointments/outbox", s.listOutbox).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/appointments/inbox", s.listInbox).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}", s.getAppointment).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/accept", s.acceptAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/reject", s.rejectAppointment).Methods(http.MethodPost)
	return r
}

// Handler wraps the routes with CORS and a default per-request deadline.
func (s *Server) Handler(allowedOrigins []string, timeout time.Duration) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(requestTimeout(timeout, s.Routes()))
}

func requestTimeout(timeout time.Duration, next http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createAppointmentRequest struct {
	RequesterID   string `json:"requester_id" validate:"required"`
	OwnerID       string `json:"owner_id" validate:"required"`
	ListingID     string `json:"listing_id" validate:"required"`
	ScheduledTime string `json:"scheduled_time" validate:"required"`
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("route", "CreateAppointment"))

	var body createAppointmentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"), slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		log.Warn("invalid request", slog.String("reason", "validation"), slog.Any("err", err))
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	s.create(w, r, log, body)
}

func (s *Server) createAppointmentFromPath(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("route", "CreateAppointmentFromPath"))
	vars := mux.Vars(r)

	s.create(w, r, log, createAppointmentRequest{
		RequesterID:   vars["requesterId"],
		OwnerID:       vars["ownerId"],
		ListingID:     vars["listingId"],
		ScheduledTime: vars["date"],
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, log *slog.Logger, body createAppointmentRequest) {
	scheduled, err := parseScheduledTime(body.ScheduledTime)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_time"), slog.String("scheduled_time", body.ScheduledTime))
		writeError(w, http.StatusBadRequest, "scheduled_time must be an RFC 3339 timestamp")
		return
	}

	appt, err := s.svc.RequestAppointment(r.Context(), appointments.CreateInput{
		RequesterID:   body.RequesterID,
		OwnerID:       body.OwnerID,
		ListingID:     body.ListingID,
		ScheduledTime: scheduled,
	})
	if err != nil {
		s.writeServiceError(w, log, err, slog.String("requester_id", body.RequesterID), slog.String("owner_id", body.OwnerID), slog.String("listing_id", body.ListingID))
		return
	}

	log.Info(
		"appointment requested",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("requester_id", appt.RequesterID),
		slog.String("owner_id", appt.OwnerID),
		slog.Time("scheduled_time", appt.ScheduledTime),
	)
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) listOutbox(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("route", "ListOutbox"))
	userID := mux.Vars(r)["userId"]

	out, err := s.svc.ListOutbox(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, log, err, slog.String("user_id", userID))
		return
	}
	log.Debug("outbox listed", slog.String("user_id", userID), slog.Int("count", len(out)))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listInbox(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("route", "ListInbox"))
	userID := mux.Vars(r)["userId"]

	out, err := s.svc.ListInbox(r.Context(), userID, s.now())
	if err != nil {
		s.writeServiceError(w, log, err, slog.String("user_id", userID))
		return
	}
	log.Debug("inbox listed", slog.String("user_id", userID), slog.Int("count", len(out)))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("route", "GetAppointment"))
	id, ok := s.appointmentID(w, r, log)
	if !ok {
		return
	}

	appt, err := s.svc.GetAppointment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, log, err, slog.String("appointment_id", id.String()))
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) acceptAppointment(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "AcceptAppointment", s.svc.Accept)
}

func (s *Server) rejectAppointment(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "RejectAppointment", s.svc.Reject)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, route string, fn func(context.Context, uuid.UUID) (domain.AppointmentRequest, error)) {
	log := s.log.With(slog.String("route", route))
	id, ok := s.appointmentID(w, r, log)
	if !ok {
		return
	}

	appt, err := fn(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, log, err, slog.String("appointment_id", id.String()))
		return
	}

	log.Info("appointment status set", slog.String("appointment_id", appt.ID.String()), slog.String("status", string(appt.Status)))
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) appointmentID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("appointment_id", raw))
		writeError(w, http.StatusBadRequest, "appointment id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, log *slog.Logger, err error, attrs ...any) {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", append(attrs, slog.Any("err", err))...)
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, appointments.ErrSelfScheduling):
		log.Info("self-scheduling refused", attrs...)
		writeError(w, http.StatusBadRequest, "You can't schedule a viewing of your own listing.")
	case errors.Is(err, store.ErrConflict):
		log.Info("duplicate appointment request", attrs...)
		writeError(w, http.StatusConflict, "You already requested a viewing of this listing.")
	case errors.Is(err, appointments.ErrNoAppointments):
		log.Info("no appointments", attrs...)
		writeError(w, http.StatusNotFound, "no appointments found")
	case errors.Is(err, store.ErrNotFound):
		log.Info("appointment not found", attrs...)
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("appointment request timed out", append(attrs, slog.Any("err", err))...)
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		log.Error("appointment request failed", append(attrs, slog.Any("err", err))...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

var scheduledTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseScheduledTime accepts RFC 3339 and the zone-less forms browsers submit;
// zone-less values are read as UTC.
func parseScheduledTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range scheduledTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, toSnake(fe.Field()))
	}
	return strings.Join(fields, ", ") + " required"
}

func toSnake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
