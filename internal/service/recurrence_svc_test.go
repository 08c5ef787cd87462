package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
)

func newRecurrence(rules *fakeRecurringStore) *RecurrenceSvc {
	return NewRecurrenceSvc(rules, nil, logger.NewNop(), time.Hour, 0, testBoost)
}

func weeklyRule() *domain.RecurringBooking {
	return &domain.RecurringBooking{
		VehicleID:           "veh-1",
		GroupID:             "grp-1",
		UserID:              "user-1",
		Pattern:             domain.PatternWeekly,
		DaysOfWeek:          "1,3",
		StartTime:           "08:00",
		EndTime:             "12:00",
		RecurrenceStartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:              domain.RecurringActive,
	}
}

func sortedStarts(store *fakeBookingStore) []time.Time {
	var out []time.Time
	for _, b := range store.bookings {
		out = append(out, b.StartAt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func TestGenerationWeeklyScenario(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rule := rules.add(weeklyRule())
	svc := newRecurrence(rules)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.RulesProcessed != 1 || report.BookingsCreated != 4 || report.GapsSkipped != 0 {
		t.Fatalf("report = %+v, want 1 rule, 4 bookings, 0 gaps", report)
	}

	want := []time.Time{
		time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC),
	}
	got := sortedStarts(bookings)
	if len(got) != len(want) {
		t.Fatalf("starts = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("starts = %v, want %v", got, want)
		}
	}

	cutoff := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if rule.LastGeneratedUntil == nil || !rule.LastGeneratedUntil.Equal(cutoff) {
		t.Errorf("watermark = %v, want %v", rule.LastGeneratedUntil, cutoff)
	}

	for _, b := range bookings.bookings {
		if b.RecurringBookingID == nil || *b.RecurringBookingID != rule.ID {
			t.Errorf("generated booking %s not linked to rule", b.ID)
		}
		if b.Status != domain.BookingConfirmed {
			t.Errorf("generated booking status = %s, want CONFIRMED", b.Status)
		}
	}
}

func TestGenerationIsIdempotent(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rules.add(weeklyRule())
	svc := newRecurrence(rules)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), now, 14); err != nil {
		t.Fatal(err)
	}
	before := len(bookings.bookings)

	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.BookingsCreated != 0 || len(bookings.bookings) != before {
		t.Fatalf("second run created bookings: report=%+v, total=%d", report, len(bookings.bookings))
	}
}

func TestGenerationRecordsConflictsAsGaps(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rules.add(weeklyRule())
	svc := newRecurrence(rules)

	// Ad hoc booking already holds the Wed Mar 5 morning.
	bookings.add(&domain.Booking{
		VehicleID: "veh-1",
		StartAt:   time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC),
		Status:    domain.BookingConfirmed,
	})

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.BookingsCreated != 3 || report.GapsSkipped != 1 {
		t.Fatalf("report = %+v, want 3 created and 1 gap", report)
	}
	if report.RulesFailed != 0 {
		t.Errorf("a conflicting occurrence is a gap, not a rule failure: %+v", report)
	}
}

func TestGenerationFailureLeavesWatermarkForRetry(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rule := rules.add(weeklyRule())
	rules.failNext = errors.New("db down")
	svc := newRecurrence(rules)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatalf("a single rule failure must not fail the batch: %v", err)
	}
	if report.RulesFailed != 1 || report.RulesProcessed != 0 {
		t.Fatalf("report = %+v, want 1 failed rule", report)
	}
	if rule.LastGeneratedUntil != nil {
		t.Error("watermark must stay behind after a failed rule")
	}

	// Next run picks the rule up again.
	report, err = svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.RulesProcessed != 1 || report.BookingsCreated != 4 {
		t.Fatalf("retry report = %+v, want the rule fully generated", report)
	}
}

func TestGenerationSkipsRulesPausedIntoTheFuture(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rule := weeklyRule()
	rule.Status = domain.RecurringPaused
	until := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	rule.PausedUntil = &until
	rules.add(rule)
	svc := newRecurrence(rules)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.RulesProcessed != 0 || len(bookings.bookings) != 0 {
		t.Fatalf("paused rule must not generate: %+v", report)
	}
}

func TestGenerationResumesExpiredPause(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rule := weeklyRule()
	rule.Status = domain.RecurringPaused
	until := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rule.PausedUntil = &until
	rules.add(rule)
	svc := newRecurrence(rules)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Run(context.Background(), now, 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.RulesProcessed != 1 || report.BookingsCreated != 4 {
		t.Fatalf("expired pause must generate: %+v", report)
	}
}

func TestGenerationResumesFromWatermark(t *testing.T) {
	bookings := newFakeBookingStore()
	rules := newFakeRecurringStore(bookings)
	rules.add(weeklyRule())
	svc := newRecurrence(rules)

	// First pass covers through Mar 15, second through Mar 22: only the new
	// week materializes.
	if _, err := svc.Run(context.Background(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 14); err != nil {
		t.Fatal(err)
	}
	report, err := svc.Run(context.Background(), time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), 14)
	if err != nil {
		t.Fatal(err)
	}
	if report.BookingsCreated != 2 {
		t.Fatalf("report = %+v, want exactly the Mar 17 and Mar 19 occurrences", report)
	}
}
