package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/metrics"
)

type Outcome string

const (
	OutcomeAdmitted                 Outcome = "ADMITTED"
	OutcomeRejected                 Outcome = "REJECTED"
	OutcomeAdmittedWithDisplacement Outcome = "ADMITTED_WITH_DISPLACEMENT"
)

// AdmissionRequest is one ad hoc, template-built, or recurrence-built booking
// request.
type AdmissionRequest struct {
	VehicleID   string
	GroupID     string
	UserID      string
	StartAt     time.Time
	EndAt       time.Time
	Priority    int
	IsEmergency bool
	Purpose     string
	Notes       string
}

// AdmissionResult is a value, not an error: conflicts are an expected outcome
// of the protocol and carry the full conflicting set back to the caller.
type AdmissionResult struct {
	Outcome      Outcome
	Booking      *domain.Booking
	Conflicts    []domain.Booking
	CancelledIDs []string
}

// AdmissionSvc decides whether a requested booking may be admitted, and
// whether an emergency request may displace weaker claims.
type AdmissionSvc struct {
	store          BookingStore
	pub            Publisher
	met            *metrics.Metrics
	log            logger.Logger
	emergencyBoost float64
	now            func() time.Time
}

func NewAdmissionSvc(store BookingStore, pub Publisher, met *metrics.Metrics, log logger.Logger, emergencyBoost float64) *AdmissionSvc {
	return &AdmissionSvc{
		store:          store,
		pub:            pub,
		met:            met,
		log:            log,
		emergencyBoost: emergencyBoost,
		now:            time.Now,
	}
}

// TryAdmit validates the request, checks the vehicle's slot under a
// transaction, and either admits, rejects with the conflicting set, or admits
// after displacing strictly weaker bookings. Persistence errors come back as
// errors; conflicts do not.
func (s *AdmissionSvc) TryAdmit(ctx context.Context, req AdmissionRequest) (*AdmissionResult, error) {
	if req.VehicleID == "" {
		return nil, domain.ErrVehicleRequired
	}
	if req.UserID == "" {
		return nil, domain.ErrUserRequired
	}
	if err := domain.ValidateInterval(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}

	started := s.now()
	b := &domain.Booking{
		VehicleID:     req.VehicleID,
		GroupID:       req.GroupID,
		UserID:        req.UserID,
		StartAt:       req.StartAt.UTC(),
		EndAt:         req.EndAt.UTC(),
		Status:        domain.BookingPending,
		Priority:      req.Priority,
		IsEmergency:   req.IsEmergency,
		PriorityScore: domain.ComputePriorityScore(req.Priority, req.IsEmergency, s.emergencyBoost),
		Purpose:       req.Purpose,
		Notes:         req.Notes,
	}

	var res *AdmissionResult
	var err error
	if req.IsEmergency {
		res, err = s.admitEmergency(ctx, b)
	} else {
		res, err = s.admit(ctx, b)
	}
	if err != nil {
		if s.met != nil {
			s.met.ErrorsCount.WithLabelValues("admission").Inc()
		}
		return nil, err
	}
	if s.met != nil {
		s.met.AdmissionTime.Observe(s.now().Sub(started).Seconds())
	}
	return res, nil
}

func (s *AdmissionSvc) admit(ctx context.Context, b *domain.Booking) (*AdmissionResult, error) {
	conflicts, err := s.store.CreateIfAvailable(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		if s.met != nil {
			s.met.BookingsRejected.Inc()
		}
		return &AdmissionResult{Outcome: OutcomeRejected, Conflicts: conflicts}, nil
	}
	s.afterAdmit(ctx, b)
	return &AdmissionResult{Outcome: OutcomeAdmitted, Booking: b}, nil
}

func (s *AdmissionSvc) admitEmergency(ctx context.Context, b *domain.Booking) (*AdmissionResult, error) {
	conflicts, cancelled, err := s.store.CreateWithDisplacement(ctx, b, b.PriorityScore)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		// Emergency cannot downgrade an equal-or-stronger claim.
		if s.met != nil {
			s.met.BookingsRejected.Inc()
		}
		return &AdmissionResult{Outcome: OutcomeRejected, Conflicts: conflicts}, nil
	}
	for _, id := range cancelled {
		if s.met != nil {
			s.met.BookingsDisplaced.Inc()
		}
		_ = s.pub.Publish(ctx, "booking.cancelled", map[string]any{
			"booking_id": id, "reason": "emergency_displacement", "displaced_by": b.ID,
		})
	}
	s.afterAdmit(ctx, b)
	if len(cancelled) > 0 {
		return &AdmissionResult{Outcome: OutcomeAdmittedWithDisplacement, Booking: b, CancelledIDs: cancelled}, nil
	}
	return &AdmissionResult{Outcome: OutcomeAdmitted, Booking: b}, nil
}

func (s *AdmissionSvc) afterAdmit(ctx context.Context, b *domain.Booking) {
	if s.met != nil {
		s.met.BookingsAdmitted.Inc()
	}
	_ = s.pub.Publish(ctx, "booking.created", map[string]any{
		"booking_id": b.ID, "user_id": b.UserID, "vehicle_id": b.VehicleID,
		"group_id": b.GroupID, "start": b.StartAt.Unix(), "end": b.EndAt.Unix(),
		"emergency": b.IsEmergency,
	})
}

func (s *AdmissionSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.store.ByID(ctx, id)
}

// SetStatus drives the confirm / start / complete transitions. Cancellation
// has its own path so a reason is always recorded.
func (s *AdmissionSvc) SetStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	switch to {
	case domain.BookingConfirmed, domain.BookingInProgress, domain.BookingCompleted:
	default:
		return nil, domain.ErrInvalidStatus
	}
	b, err := s.store.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	_ = s.pub.Publish(ctx, "booking.status_changed", map[string]any{
		"booking_id": b.ID, "status": b.Status,
	})
	return b, nil
}

func (s *AdmissionSvc) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	b, err := s.store.Cancel(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	_ = s.pub.Publish(ctx, "booking.cancelled", map[string]any{"booking_id": b.ID, "reason": reason})
	return b, nil
}

func (s *AdmissionSvc) List(ctx context.Context, page, size int, userID, vehicleID string, day *time.Time) ([]domain.Booking, int64, error) {
	return s.store.List(ctx, page, size, userID, vehicleID, day)
}
