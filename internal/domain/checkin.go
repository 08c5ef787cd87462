package domain

import (
	"errors"
	"time"
)

var (
	ErrAlreadyCheckedIn = errors.New("booking already checked in")
	ErrBookingClosed    = errors.New("booking is cancelled or completed")
)

// CheckIn records the actual return of a vehicle for one booking.
type CheckIn struct {
	ID          string `gorm:"primaryKey"`
	BookingID   string `gorm:"uniqueIndex"`
	UserID      string `gorm:"index"`
	ReturnedAt  time.Time
	LateMinutes int
	Notes       string
	Timestamps  `gorm:"embedded"`
}

// LateReturnFee is assessed at most once per booking, when the return lands
// beyond the grace period.
type LateReturnFee struct {
	ID         string `gorm:"primaryKey"`
	BookingID  string `gorm:"uniqueIndex"`
	UserID     string `gorm:"index"`
	GroupID    string `gorm:"index"`
	Minutes    int
	Amount     float64
	BandLabel  string
	Timestamps `gorm:"embedded"`
}
