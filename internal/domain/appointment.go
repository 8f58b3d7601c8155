package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusPending  AppointmentStatus = "pending"
	AppointmentStatusAccepted AppointmentStatus = "accepted"
	AppointmentStatusRejected AppointmentStatus = "rejected"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusAccepted, AppointmentStatusRejected:
		return true
	default:
		return false
	}
}

// AppointmentRequest is a requester's ask to view an owner's listing at ScheduledTime.
type AppointmentRequest struct {
	bun.BaseModel `bun:"table:appointment_requests"`

	ID            uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	RequesterID   string            `bun:"requester_id,notnull" json:"requester_id"`
	OwnerID       string            `bun:"owner_id,notnull" json:"owner_id"`
	ListingID     string            `bun:"listing_id,notnull" json:"listing_id"`
	ScheduledTime time.Time         `bun:"scheduled_time,notnull" json:"scheduled_time"`
	Status        AppointmentStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

func (a *AppointmentRequest) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentStatusPending
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AppointmentDetails joins a request with its listing and the party on the other side of it.
type AppointmentDetails struct {
	ID            uuid.UUID         `json:"id"`
	Status        AppointmentStatus `json:"status"`
	ScheduledTime time.Time         `json:"scheduled_time"`
	Listing       Listing           `json:"listing"`
	Counterparty  User              `json:"counterparty"`
}
