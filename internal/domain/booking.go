package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidInterval = errors.New("end must be after start")
	ErrVehicleRequired = errors.New("vehicle id is required")
	ErrUserRequired    = errors.New("user id is required")
	ErrInvalidStatus   = errors.New("invalid booking status transition")
)

// Timestamps is the audit pair embedded in every persisted entity. The
// persistence layer fills them on write.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// ActiveBookingStatuses are the statuses that occupy a vehicle's time slot.
func ActiveBookingStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress}
}

// Booking is one reservation of a vehicle by a group member. Intervals are
// half-open [StartAt, EndAt) in UTC: touching boundaries do not conflict.
type Booking struct {
	ID                 string        `gorm:"primaryKey"`
	VehicleID          string        `gorm:"index"`
	GroupID            string        `gorm:"index"`
	UserID             string        `gorm:"index"`
	StartAt            time.Time     `gorm:"index"`
	EndAt              time.Time     `gorm:"index"`
	Status             BookingStatus `gorm:"index"`
	Priority           int
	IsEmergency        bool
	PriorityScore      float64
	RecurringBookingID *string `gorm:"index"`
	Purpose            string
	Notes              string
	CancelReason       string
	Timestamps         `gorm:"embedded"`
}

// Overlaps reports whether the booking's interval intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.EndAt)
}

// IsActive reports whether the booking still occupies its slot.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case BookingPending, BookingConfirmed, BookingInProgress:
		return true
	}
	return false
}

// ComputePriorityScore derives the ranking score used for displacement
// decisions. Emergency requests get a flat boost on top of their priority.
func ComputePriorityScore(priority int, isEmergency bool, emergencyBoost float64) float64 {
	score := float64(priority)
	if isEmergency {
		score += emergencyBoost
	}
	return score
}

// ValidateInterval rejects malformed [start, end) requests before they reach
// the store.
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}
