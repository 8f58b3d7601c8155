package grpc

import (
	"time"

	"viewings/backend/internal/domain"
)

type CreateAppointmentRequest struct {
	RequesterID   string    `json:"requester_id"`
	OwnerID       string    `json:"owner_id"`
	ListingID     string    `json:"listing_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

type CreateAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type GetAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type GetAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type ListAppointmentsRequest struct {
	UserID string `json:"user_id"`
}

type ListAppointmentsResponse struct {
	Appointments []*AppointmentDetail `json:"appointments"`
}

type SetStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type SetStatusResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type Appointment struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	OwnerID       string    `json:"owner_id"`
	ListingID     string    `json:"listing_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AppointmentDetail struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Listing       Listing   `json:"listing"`
	Counterparty  User      `json:"counterparty"`
}

type Listing struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	ImageURLs   []string `json:"image_urls"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func toWireAppointment(a domain.AppointmentRequest) *Appointment {
	return &Appointment{
		ID:            a.ID.String(),
		RequesterID:   a.RequesterID,
		OwnerID:       a.OwnerID,
		ListingID:     a.ListingID,
		ScheduledTime: a.ScheduledTime.UTC(),
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
}

func toWireDetail(d domain.AppointmentDetails) *AppointmentDetail {
	return &AppointmentDetail{
		ID:            d.ID.String(),
		Status:        string(d.Status),
		ScheduledTime: d.ScheduledTime.UTC(),
		Listing: Listing{
			ID:          d.Listing.ID,
			OwnerID:     d.Listing.OwnerID,
			Name:        d.Listing.Name,
			Description: d.Listing.Description,
			Address:     d.Listing.Address,
			ImageURLs:   d.Listing.ImageURLs,
		},
		Counterparty: User{
			ID:       d.Counterparty.ID,
			Username: d.Counterparty.Username,
			Email:    d.Counterparty.Email,
			Avatar:   d.Counterparty.Avatar,
		},
	}
}
