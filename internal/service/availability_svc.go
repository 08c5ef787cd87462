package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

// FreeSlot is one open gap in a vehicle's schedule.
type FreeSlot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// AvailabilitySvc answers overlap and free-slot queries against committed
// data. Read-only.
type AvailabilitySvc struct {
	store BookingStore
}

func NewAvailabilitySvc(store BookingStore) *AvailabilitySvc {
	return &AvailabilitySvc{store: store}
}

func (s *AvailabilitySvc) Overlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]domain.Booking, error) {
	if vehicleID == "" {
		return nil, domain.ErrVehicleRequired
	}
	if err := domain.ValidateInterval(start, end); err != nil {
		return nil, err
	}
	return s.store.FindOverlapping(ctx, vehicleID, start, end, excludeID)
}

// FreeSlots walks the vehicle's active bookings inside a window and returns
// the gaps between them. Bookings arrive sorted by start; overlapping the
// cursor just pushes it forward.
func (s *AvailabilitySvc) FreeSlots(ctx context.Context, vehicleID string, windowStart, windowEnd time.Time) ([]FreeSlot, error) {
	booked, err := s.Overlapping(ctx, vehicleID, windowStart, windowEnd, "")
	if err != nil {
		return nil, err
	}

	var slots []FreeSlot
	cursor := windowStart
	for _, b := range booked {
		if b.StartAt.After(cursor) {
			slots = append(slots, FreeSlot{StartAt: cursor, EndAt: b.StartAt})
		}
		if b.EndAt.After(cursor) {
			cursor = b.EndAt
		}
	}
	if cursor.Before(windowEnd) {
		slots = append(slots, FreeSlot{StartAt: cursor, EndAt: windowEnd})
	}
	return slots, nil
}
