package appointments

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/store"
)

// enrich joins each request with its listing and the user picked by
// counterparty. Requests whose lookups fail are dropped; order is kept.
func (s *Service) enrich(ctx context.Context, rows []domain.AppointmentRequest, counterparty func(domain.AppointmentRequest) string) ([]domain.AppointmentDetails, error) {
	results := make([]*domain.AppointmentDetails, len(rows))

	var g errgroup.Group
	g.SetLimit(s.enrichConcurrency)
	for i, row := range rows {
		g.Go(func() error {
			if d, ok := s.enrichOne(ctx, row, counterparty(row)); ok {
				results[i] = &d
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.AppointmentDetails, 0, len(rows))
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *Service) enrichOne(ctx context.Context, row domain.AppointmentRequest, userID string) (domain.AppointmentDetails, bool) {
	listing, err := s.dir.FindListing(ctx, row.ListingID)
	if err != nil {
		s.logDropped(row, "listing", row.ListingID, err)
		return domain.AppointmentDetails{}, false
	}
	user, err := s.dir.FindUser(ctx, userID)
	if err != nil {
		s.logDropped(row, "user", userID, err)
		return domain.AppointmentDetails{}, false
	}

	return domain.AppointmentDetails{
		ID:            row.ID,
		Status:        row.Status,
		ScheduledTime: row.ScheduledTime,
		Listing:       listing,
		Counterparty:  user,
	}, true
}

func (s *Service) logDropped(row domain.AppointmentRequest, kind, ref string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, store.ErrNotFound) {
		level = slog.LevelDebug
	}
	s.log.Log(context.Background(), level,
		"appointment dropped from listing",
		slog.String("appointment_id", row.ID.String()),
		slog.String("missing", kind),
		slog.String("ref", ref),
		slog.Any("err", err),
	)
}
