package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

type CheckInRepo struct{ db *gorm.DB }

func NewCheckInRepo(db *gorm.DB) *CheckInRepo {
	return &CheckInRepo{db: db}
}

// Complete records the check-in, attaches the fee when one was assessed, and
// moves the booking to COMPLETED — all in one transaction. A second check-in
// for the same booking fails with ErrAlreadyCheckedIn, so a fee can never be
// charged twice.
func (r *CheckInRepo) Complete(ctx context.Context, ci *domain.CheckIn, fee *domain.LateReturnFee) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.CheckIn
		err := tx.Where("booking_id = ?", ci.BookingID).Take(&existing).Error
		if err == nil {
			return domain.ErrAlreadyCheckedIn
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if ci.ID == "" {
			ci.ID = uuid.NewString()
		}
		if err := tx.Create(ci).Error; err != nil {
			return err
		}
		if fee != nil {
			if fee.ID == "" {
				fee.ID = uuid.NewString()
			}
			if err := tx.Create(fee).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Booking{}).Where("id = ?", ci.BookingID).
			Update("status", domain.BookingCompleted).Error
	})
}

func (r *CheckInRepo) FeeByBooking(ctx context.Context, bookingID string) (*domain.LateReturnFee, error) {
	var fee domain.LateReturnFee
	if err := r.db.WithContext(ctx).First(&fee, "booking_id = ?", bookingID).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}
