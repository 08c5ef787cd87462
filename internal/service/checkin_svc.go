package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/latefee"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/metrics"
)

// CheckInSvc closes a booking on vehicle return and assesses the late fee
// exactly once.
type CheckInSvc struct {
	bookings      BookingStore
	checkins      CheckInStore
	members       MemberStore
	fees          latefee.Options
	pub           Publisher
	met           *metrics.Metrics
	log           logger.Logger
	notifyLateFee bool
	now           func() time.Time
}

func NewCheckInSvc(bookings BookingStore, checkins CheckInStore, members MemberStore, fees latefee.Options, pub Publisher, met *metrics.Metrics, log logger.Logger, notifyLateFee bool) *CheckInSvc {
	return &CheckInSvc{
		bookings:      bookings,
		checkins:      checkins,
		members:       members,
		fees:          fees,
		pub:           pub,
		met:           met,
		log:           log,
		notifyLateFee: notifyLateFee,
		now:           time.Now,
	}
}

// RecordCheckIn computes lateness against the booking's scheduled end,
// persists the check-in (and fee, when one applies) and completes the
// booking. A band-table gap surfaces as an error; it is never swallowed as a
// zero fee.
func (s *CheckInSvc) RecordCheckIn(ctx context.Context, bookingID string, actualReturn time.Time) (*domain.CheckIn, *domain.LateReturnFee, error) {
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.Status == domain.BookingCancelled || b.Status == domain.BookingCompleted {
		return nil, nil, domain.ErrBookingClosed
	}

	assess, err := s.fees.Fee(b.EndAt, actualReturn.UTC())
	if err != nil {
		if s.met != nil {
			s.met.ErrorsCount.WithLabelValues("latefee").Inc()
		}
		return nil, nil, err
	}

	ci := &domain.CheckIn{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ReturnedAt:  actualReturn.UTC(),
		LateMinutes: assess.LateMinutes,
	}
	var fee *domain.LateReturnFee
	if assess.Amount > 0 {
		fee = &domain.LateReturnFee{
			BookingID: b.ID,
			UserID:    b.UserID,
			GroupID:   b.GroupID,
			Minutes:   assess.LateMinutes,
			Amount:    assess.Amount,
			BandLabel: assess.BandLabel,
		}
	}

	if err := s.checkins.Complete(ctx, ci, fee); err != nil {
		return nil, nil, err
	}

	_ = s.pub.Publish(ctx, "booking.completed", map[string]any{
		"booking_id": b.ID, "returned_at": ci.ReturnedAt.Unix(), "late_minutes": ci.LateMinutes,
	})
	if fee != nil {
		if s.met != nil {
			s.met.LateFeesAssessed.Inc()
		}
		if s.notifyLateFee {
			payload := map[string]any{
				"booking_id": fee.BookingID, "user_id": fee.UserID, "group_id": fee.GroupID,
				"minutes": fee.Minutes, "amount": fee.Amount,
			}
			// Enrich from the local member projection so the notifier does
			// not need a user-service round trip.
			if m, err := s.members.ByID(ctx, fee.UserID); err == nil {
				payload["email"] = m.Email
			} else {
				s.log.Warn("member lookup for late fee notification", "user_id", fee.UserID, "error", err)
			}
			_ = s.pub.Publish(ctx, "booking.latefee_assessed", payload)
		}
	}
	return ci, fee, nil
}

// FeeFor returns the late fee assessed for a booking, if any.
func (s *CheckInSvc) FeeFor(ctx context.Context, bookingID string) (*domain.LateReturnFee, error) {
	return s.checkins.FeeByBooking(ctx, bookingID)
}
