package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/service/appointments"
	"viewings/backend/internal/store"
)

type fakeAppointmentsService struct {
	createFn     func(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error)
	getFn        func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	listOutboxFn func(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error)
	listInboxFn  func(ctx context.Context, ownerID string, now time.Time) ([]domain.AppointmentDetails, error)
	acceptFn     func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
	rejectFn     func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error)
}

func (f *fakeAppointmentsService) RequestAppointment(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error) {
	if f.createFn == nil {
		panic("RequestAppointment not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointmentsService) GetAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	if f.getFn == nil {
		panic("GetAppointment not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointmentsService) ListOutbox(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error) {
	if f.listOutboxFn == nil {
		panic("ListOutbox not configured")
	}
	return f.listOutboxFn(ctx, requesterID)
}

func (f *fakeAppointmentsService) ListInbox(ctx context.Context, ownerID string, now time.Time) ([]domain.AppointmentDetails, error) {
	if f.listInboxFn == nil {
		panic("ListInbox not configured")
	}
	return f.listInboxFn(ctx, ownerID, now)
}

func (f *fakeAppointmentsService) Accept(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	if f.acceptFn == nil {
		panic("Accept not configured")
	}
	return f.acceptFn(ctx, id)
}

func (f *fakeAppointmentsService) Reject(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
	if f.rejectFn == nil {
		panic("Reject not configured")
	}
	return f.rejectFn(ctx, id)
}

var testID = uuid.MustParse("00000000-0000-0000-0000-000000000010")

func TestCreateAppointment_PassesFieldsToService(t *testing.T) {
	scheduled := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	var got appointments.CreateInput

	srv := NewAppointmentsServer(&fakeAppointmentsService{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error) {
			got = in
			return domain.AppointmentRequest{
				ID:            testID,
				RequesterID:   in.RequesterID,
				OwnerID:       in.OwnerID,
				ListingID:     in.ListingID,
				ScheduledTime: in.ScheduledTime,
				Status:        domain.AppointmentStatusPending,
			}, nil
		},
	}, slog.Default())

	resp, err := srv.CreateAppointment(context.Background(), &CreateAppointmentRequest{
		RequesterID:   "U1",
		OwnerID:       "U2",
		ListingID:     "L1",
		ScheduledTime: scheduled,
	})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if got.RequesterID != "U1" || got.OwnerID != "U2" || got.ListingID != "L1" || !got.ScheduledTime.Equal(scheduled) {
		t.Fatalf("service input = %+v", got)
	}
	if resp.Appointment.ID != testID.String() || resp.Appointment.Status != "pending" {
		t.Fatalf("appointment = %+v", resp.Appointment)
	}
}

func TestCreateAppointment_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: &appointments.ValidationError{}, want: codes.InvalidArgument},
		{name: "self scheduling", err: appointments.ErrSelfScheduling, want: codes.InvalidArgument},
		{name: "duplicate", err: appointments.ErrDuplicateRequest, want: codes.AlreadyExists},
		{name: "storage", err: &appointments.StorageError{Op: "create", Err: errors.New("boom")}, want: codes.Internal},
		{name: "deadline", err: &appointments.StorageError{Op: "create", Err: context.DeadlineExceeded}, want: codes.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewAppointmentsServer(&fakeAppointmentsService{
				createFn: func(ctx context.Context, in appointments.CreateInput) (domain.AppointmentRequest, error) {
					return domain.AppointmentRequest{}, tt.err
				},
			}, slog.Default())

			_, err := srv.CreateAppointment(context.Background(), &CreateAppointmentRequest{RequesterID: "U1"})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}

func TestCreateAppointment_RejectsNilRequest(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default())

	_, err := srv.CreateAppointment(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestSetStatus_RejectsInvalidUUID(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default())

	_, err := srv.AcceptAppointment(context.Background(), &SetStatusRequest{AppointmentID: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("accept code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	_, err = srv.RejectAppointment(context.Background(), &SetStatusRequest{AppointmentID: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("reject code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestAcceptAppointment_UnknownIDIsNotFound(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		acceptFn: func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
			return domain.AppointmentRequest{}, store.ErrNotFound
		},
	}, slog.Default())

	_, err := srv.AcceptAppointment(context.Background(), &SetStatusRequest{AppointmentID: testID.String()})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestRejectAppointment_ReturnsUpdatedRecord(t *testing.T) {
	var gotID uuid.UUID
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		rejectFn: func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
			gotID = id
			return domain.AppointmentRequest{ID: id, Status: domain.AppointmentStatusRejected}, nil
		},
	}, slog.Default())

	resp, err := srv.RejectAppointment(context.Background(), &SetStatusRequest{AppointmentID: testID.String()})
	if err != nil {
		t.Fatalf("RejectAppointment error: %v", err)
	}
	if gotID != testID {
		t.Fatalf("id = %s, want %s", gotID, testID)
	}
	if resp.Appointment.Status != "rejected" {
		t.Fatalf("status = %q, want rejected", resp.Appointment.Status)
	}
}

func TestListInbox_UsesServerClockAndMapsDetails(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotNow time.Time

	srv := NewAppointmentsServer(&fakeAppointmentsService{
		listInboxFn: func(ctx context.Context, ownerID string, at time.Time) ([]domain.AppointmentDetails, error) {
			gotNow = at
			return []domain.AppointmentDetails{{
				ID:            testID,
				Status:        domain.AppointmentStatusRejected,
				ScheduledTime: now.Add(-time.Hour),
				Listing:       domain.Listing{ID: "L1", Name: "Loft"},
				Counterparty:  domain.User{ID: "U1", Username: "alice"},
			}}, nil
		},
	}, slog.Default())
	srv.now = func() time.Time { return now }

	resp, err := srv.ListInbox(context.Background(), &ListAppointmentsRequest{UserID: "U2"})
	if err != nil {
		t.Fatalf("ListInbox error: %v", err)
	}
	if !gotNow.Equal(now) {
		t.Fatalf("now = %v, want %v", gotNow, now)
	}
	if len(resp.Appointments) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Appointments))
	}
	got := resp.Appointments[0]
	if got.Listing.Name != "Loft" || got.Counterparty.Username != "alice" || got.Status != "rejected" {
		t.Fatalf("detail = %+v", got)
	}
}

func TestListOutbox_EmptyIsNotFound(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		listOutboxFn: func(ctx context.Context, requesterID string) ([]domain.AppointmentDetails, error) {
			return nil, appointments.ErrNoAppointments
		},
	}, slog.Default())

	_, err := srv.ListOutbox(context.Background(), &ListAppointmentsRequest{UserID: "U1"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestServiceDesc_RoundTripsJSONOverTheWire(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterAppointmentRequestsServer(s, NewAppointmentsServer(&fakeAppointmentsService{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.AppointmentRequest, error) {
			return domain.AppointmentRequest{ID: id, ListingID: "L1", Status: domain.AppointmentStatusAccepted}, nil
		},
	}, slog.Default()))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp GetAppointmentResponse
	err = conn.Invoke(ctx, "/"+serviceName+"/GetAppointment", &GetAppointmentRequest{AppointmentID: testID.String()}, &resp)
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if resp.Appointment == nil || resp.Appointment.ID != testID.String() || resp.Appointment.Status != "accepted" {
		t.Fatalf("appointment = %+v", resp.Appointment)
	}

	err = conn.Invoke(ctx, "/"+serviceName+"/GetAppointment", &GetAppointmentRequest{AppointmentID: "bad"}, &resp)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}
