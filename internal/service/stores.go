package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

// BookingStore is the persistence contract the admission and availability
// services depend on. The gorm implementation keeps the overlap check and
// any writes in one per-vehicle transaction.
type BookingStore interface {
	FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]domain.Booking, error)
	CreateIfAvailable(ctx context.Context, b *domain.Booking) ([]domain.Booking, error)
	CreateWithDisplacement(ctx context.Context, b *domain.Booking, score float64) ([]domain.Booking, []string, error)
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error)
	List(ctx context.Context, page, size int, userID, vehicleID string, day *time.Time) ([]domain.Booking, int64, error)
}

// RecurringStore owns the generation watermark; nothing else writes it.
type RecurringStore interface {
	FindDue(ctx context.Context, now, cutoff, lookBack time.Time) ([]domain.RecurringBooking, error)
	ApplyGeneration(ctx context.Context, rule *domain.RecurringBooking, candidates []domain.Booking, cutoff, runAt time.Time) (created, gaps int, err error)
}

type TemplateStore interface {
	ByID(ctx context.Context, id string) (*domain.BookingTemplate, error)
	IncrementUsage(ctx context.Context, id string) error
}

type CheckInStore interface {
	Complete(ctx context.Context, ci *domain.CheckIn, fee *domain.LateReturnFee) error
	FeeByBooking(ctx context.Context, bookingID string) (*domain.LateReturnFee, error)
}

// MemberStore is the local user projection kept fresh by the event consumer.
type MemberStore interface {
	ByID(ctx context.Context, id string) (*domain.Member, error)
}

// Publisher is the fire-and-forget outbound signal; delivery is the bus's
// problem.
type Publisher interface {
	Publish(ctx context.Context, key string, data any) error
}
