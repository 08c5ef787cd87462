package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{}, &domain.CheckIn{}, &domain.LateReturnFee{})
}

// lockVehicle takes a transaction-scoped advisory lock on the vehicle.
// Row locks alone cannot block a concurrent insert into a currently-free
// slot, so every admission transaction serializes here first.
func lockVehicle(tx *gorm.DB, vehicleID string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", vehicleID).Error
}

// lockOverlapping locks and returns every active booking on the vehicle whose
// interval intersects [start, end). Half-open semantics: touching boundaries
// do not conflict. Must run inside a transaction.
func lockOverlapping(tx *gorm.DB, vehicleID string, start, end time.Time, excludeID string) ([]domain.Booking, error) {
	q := tx.Model(&domain.Booking{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vehicle_id = ? AND status IN ?", vehicleID, domain.ActiveBookingStatuses()).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []domain.Booking
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindOverlapping is the read-only availability query used outside admission.
func (r *BookingRepo) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]domain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status IN ?", vehicleID, domain.ActiveBookingStatuses()).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []domain.Booking
	if err := q.Order("start_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIfAvailable admits the booking only when its slot is free. The
// overlap check and the insert share one transaction, with candidate rows
// locked, so two concurrent requests cannot both pass against a stale
// snapshot. A non-empty conflict list means the request was rejected.
func (r *BookingRepo) CreateIfAvailable(ctx context.Context, b *domain.Booking) ([]domain.Booking, error) {
	var conflicts []domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockVehicle(tx, b.VehicleID); err != nil {
			return err
		}
		found, err := lockOverlapping(tx, b.VehicleID, b.StartAt, b.EndAt, "")
		if err != nil {
			return err
		}
		if len(found) > 0 {
			conflicts = found
			return nil
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		return tx.Create(b).Error
	})
	return conflicts, err
}

// CreateWithDisplacement admits an emergency booking, cancelling every
// overlapping booking whose priority score is strictly below the requester's.
// If any conflict holds an equal or higher score the whole request is
// rejected and nothing is written. Cancellations and the insert commit
// together or not at all.
func (r *BookingRepo) CreateWithDisplacement(ctx context.Context, b *domain.Booking, score float64) ([]domain.Booking, []string, error) {
	var conflicts []domain.Booking
	var cancelled []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockVehicle(tx, b.VehicleID); err != nil {
			return err
		}
		found, err := lockOverlapping(tx, b.VehicleID, b.StartAt, b.EndAt, "")
		if err != nil {
			return err
		}
		for _, c := range found {
			// Equal score: the earlier-created booking (the existing one) wins.
			if c.PriorityScore >= score {
				conflicts = found
				return nil
			}
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		reason := fmt.Sprintf("displaced by emergency booking %s", b.ID)
		for _, c := range found {
			res := tx.Model(&domain.Booking{}).Where("id = ?", c.ID).
				Updates(map[string]any{"status": domain.BookingCancelled, "cancel_reason": reason})
			if res.Error != nil {
				return res.Error
			}
			cancelled = append(cancelled, c.ID)
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return conflicts, cancelled, nil
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Cancel soft-cancels a booking with a recorded reason. Completed bookings
// are never physically deleted.
func (r *BookingRepo) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if b.Status == domain.BookingCompleted || b.Status == domain.BookingCancelled {
			return domain.ErrBookingClosed
		}
		b.Status = domain.BookingCancelled
		b.CancelReason = reason
		return tx.Save(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatus moves a booking along its lifecycle. Terminal bookings refuse;
// cancellation goes through Cancel so a reason is always recorded.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if b.Status == domain.BookingCompleted || b.Status == domain.BookingCancelled {
			return domain.ErrBookingClosed
		}
		b.Status = to
		return tx.Save(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List pages bookings filtered by user, vehicle, and day (any overlap with
// the day's 24h window, UTC).
func (r *BookingRepo) List(ctx context.Context, page, size int, userID, vehicleID string, day *time.Time) ([]domain.Booking, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Booking{})
	if userID != "" {
		qb = qb.Where("user_id = ?", userID)
	}
	if vehicleID != "" {
		qb = qb.Where("vehicle_id = ?", vehicleID)
	}
	if day != nil {
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)
		qb = qb.Where("start_at < ? AND end_at > ?", to, from)
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Booking
	if err := qb.Order("start_at ASC").Limit(size).Offset(page * size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
