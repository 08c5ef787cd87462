package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/metrics"
)

// GenerationReport summarizes one generation batch.
type GenerationReport struct {
	RulesProcessed  int `json:"rules_processed"`
	RulesFailed     int `json:"rules_failed"`
	BookingsCreated int `json:"bookings_created"`
	GapsSkipped     int `json:"gaps_skipped"`
}

// RecurrenceSvc materializes concrete bookings for every due recurring rule
// up to a horizon. Each rule commits independently, so one bad rule cannot
// block the batch, and the watermark makes re-runs produce nothing new.
type RecurrenceSvc struct {
	rules          RecurringStore
	met            *metrics.Metrics
	log            logger.Logger
	lookBack       time.Duration
	budget         time.Duration
	emergencyBoost float64
	now            func() time.Time
}

func NewRecurrenceSvc(rules RecurringStore, met *metrics.Metrics, log logger.Logger, lookBack, budget time.Duration, emergencyBoost float64) *RecurrenceSvc {
	return &RecurrenceSvc{
		rules:          rules,
		met:            met,
		log:            log,
		lookBack:       lookBack,
		budget:         budget,
		emergencyBoost: emergencyBoost,
		now:            time.Now,
	}
}

// Run executes one generation batch. The cutoff is midnight UTC horizonDays
// ahead of nowUTC; candidate dates live in [max(watermark, rule start),
// cutoff). Conflicting occurrences are recorded as gaps, never as failures.
// Rules still unprocessed when the wall-clock budget expires wait for the
// next scheduled run.
func (s *RecurrenceSvc) Run(ctx context.Context, nowUTC time.Time, horizonDays int) (GenerationReport, error) {
	var report GenerationReport
	nowUTC = nowUTC.UTC()
	h := nowUTC.AddDate(0, 0, horizonDays)
	cutoff := time.Date(h.Year(), h.Month(), h.Day(), 0, 0, 0, 0, time.UTC)
	lookBack := nowUTC.Add(-s.lookBack)

	if s.met != nil {
		s.met.GenerationRuns.Inc()
	}

	due, err := s.rules.FindDue(ctx, nowUTC, cutoff, lookBack)
	if err != nil {
		return report, err
	}

	deadline := s.now().Add(s.budget)
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		if s.budget > 0 && s.now().After(deadline) {
			s.log.Warn("generation budget exhausted", "remaining_rules", len(due)-i)
			break
		}

		rule := &due[i]
		created, gaps, err := s.generateRule(ctx, rule, nowUTC, cutoff)
		if err != nil {
			// Watermark stays behind; the rule is retried next run.
			report.RulesFailed++
			if s.met != nil {
				s.met.ErrorsCount.WithLabelValues("generation").Inc()
			}
			s.log.Error("generation failed for rule", "rule_id", rule.ID, "error", err)
			continue
		}
		report.RulesProcessed++
		report.BookingsCreated += created
		report.GapsSkipped += gaps
		if s.met != nil {
			s.met.BookingsGenerated.Add(float64(created))
			s.met.GenerationGaps.Add(float64(gaps))
		}
	}
	return report, nil
}

func (s *RecurrenceSvc) generateRule(ctx context.Context, rule *domain.RecurringBooking, nowUTC, cutoff time.Time) (int, int, error) {
	from := rule.RecurrenceStartDate
	if rule.LastGeneratedUntil != nil && rule.LastGeneratedUntil.After(from) {
		from = *rule.LastGeneratedUntil
	}

	dates, err := rule.OccurrenceDates(from, cutoff)
	if err != nil {
		return 0, 0, err
	}

	candidates := make([]domain.Booking, 0, len(dates))
	for _, d := range dates {
		start, end, err := rule.OccurrenceWindow(d)
		if err != nil {
			return 0, 0, err
		}
		ruleID := rule.ID
		candidates = append(candidates, domain.Booking{
			VehicleID:          rule.VehicleID,
			GroupID:            rule.GroupID,
			UserID:             rule.UserID,
			StartAt:            start,
			EndAt:              end,
			Status:             domain.BookingConfirmed,
			Priority:           rule.Priority,
			PriorityScore:      domain.ComputePriorityScore(rule.Priority, false, s.emergencyBoost),
			RecurringBookingID: &ruleID,
			Purpose:            rule.Purpose,
			Notes:              rule.Notes,
		})
	}

	return s.rules.ApplyGeneration(ctx, rule, candidates, cutoff, nowUTC)
}
