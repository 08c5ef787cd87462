package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidRule = errors.New("invalid recurrence rule")

type RecurrencePattern string

const (
	PatternDaily  RecurrencePattern = "DAILY"
	PatternWeekly RecurrencePattern = "WEEKLY"
	PatternCustom RecurrencePattern = "CUSTOM"
)

type RecurringStatus string

const (
	RecurringActive    RecurringStatus = "ACTIVE"
	RecurringPaused    RecurringStatus = "PAUSED"
	RecurringCancelled RecurringStatus = "CANCELLED"
	RecurringCompleted RecurringStatus = "COMPLETED"
)

// RecurringBooking is a rule that generates concrete bookings up to a moving
// horizon. LastGeneratedUntil is the generation watermark: it never regresses
// across successful runs. LastGenerationRunAt detects runs that started but
// never completed.
type RecurringBooking struct {
	ID            string `gorm:"primaryKey"`
	VehicleID     string `gorm:"index"`
	GroupID       string `gorm:"index"`
	UserID        string `gorm:"index"`
	Pattern       RecurrencePattern
	IntervalValue int
	// DaysOfWeek holds comma-separated time.Weekday numbers ("1,3" = Mon,Wed).
	// Meaningful for WEEKLY rules only.
	DaysOfWeek string
	StartTime  string // "15:04" wall clock in Timezone
	EndTime    string
	Timezone   string // IANA name, empty means UTC

	RecurrenceStartDate time.Time
	RecurrenceEndDate   *time.Time

	Status              RecurringStatus `gorm:"index"`
	PausedUntil         *time.Time
	LastGeneratedUntil  *time.Time
	LastGenerationRunAt *time.Time

	Priority   int
	Purpose    string
	Notes      string
	Timestamps `gorm:"embedded"`
}

func (r *RecurringBooking) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// Weekdays parses DaysOfWeek into a set.
func (r *RecurringBooking) Weekdays() (map[time.Weekday]bool, error) {
	out := map[time.Weekday]bool{}
	for _, part := range strings.Split(r.DaysOfWeek, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid day of week %q", part)
		}
		out[time.Weekday(n)] = true
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("weekly rule has no days of week")
	}
	return out, nil
}

func (r *RecurringBooking) interval() int {
	if r.IntervalValue < 1 {
		return 1
	}
	return r.IntervalValue
}

// Normalize validates the rule and anchors its date bounds to midnight in the
// rule's zone. The date portion of RecurrenceStartDate/EndDate is read as a
// civil date, so a UTC-midnight instant on a west-of-UTC rule cannot slide the
// anchor a day early. Must run before the rule is persisted; generation
// assumes normalized bounds.
func (r *RecurringBooking) Normalize() error {
	loc, err := r.Location()
	if err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalidRule, err)
	}
	switch r.Pattern {
	case PatternDaily, PatternWeekly, PatternCustom:
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, r.Pattern)
	}
	if r.Pattern == PatternWeekly {
		if _, err := r.Weekdays(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}
	if _, err := time.Parse("15:04", r.StartTime); err != nil {
		return fmt.Errorf("%w: start time %q", ErrInvalidRule, r.StartTime)
	}
	if _, err := time.Parse("15:04", r.EndTime); err != nil {
		return fmt.Errorf("%w: end time %q", ErrInvalidRule, r.EndTime)
	}
	if r.IntervalValue < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidRule)
	}
	if r.RecurrenceStartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRule)
	}

	r.RecurrenceStartDate = civilMidnight(r.RecurrenceStartDate, loc)
	if r.RecurrenceEndDate != nil {
		e := civilMidnight(*r.RecurrenceEndDate, loc)
		if !e.After(r.RecurrenceStartDate) {
			return fmt.Errorf("%w: end date not after start date", ErrInvalidRule)
		}
		r.RecurrenceEndDate = &e
	}
	return nil
}

// OccurrenceDates enumerates the candidate dates d with from <= d < until
// that match the rule's pattern, anchored at RecurrenceStartDate. Dates on or
// after RecurrenceEndDate are never produced.
func (r *RecurringBooking) OccurrenceDates(from, until time.Time) ([]time.Time, error) {
	loc, err := r.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", r.Timezone, err)
	}

	anchor := midnightIn(r.RecurrenceStartDate, loc)
	lower := anchor
	if d := midnightIn(from, loc); d.After(lower) {
		lower = d
	}
	upper := midnightIn(until, loc)
	if r.RecurrenceEndDate != nil {
		if end := midnightIn(*r.RecurrenceEndDate, loc); end.Before(upper) {
			upper = end
		}
	}

	var days map[time.Weekday]bool
	if r.Pattern == PatternWeekly {
		if days, err = r.Weekdays(); err != nil {
			return nil, err
		}
	}

	var out []time.Time
	for d := lower; d.Before(upper); d = d.AddDate(0, 0, 1) {
		switch r.Pattern {
		case PatternDaily, PatternCustom:
			if daysBetween(anchor, d)%r.interval() == 0 {
				out = append(out, d)
			}
		case PatternWeekly:
			if days[d.Weekday()] && weeksBetween(anchor, d)%r.interval() == 0 {
				out = append(out, d)
			}
		default:
			return nil, fmt.Errorf("unknown recurrence pattern %q", r.Pattern)
		}
	}
	return out, nil
}

// OccurrenceWindow builds the concrete [start, end) instants for one candidate
// date, in UTC. A window whose end is not after its start wraps to the next
// day (overnight booking).
func (r *RecurringBooking) OccurrenceWindow(date time.Time) (time.Time, time.Time, error) {
	loc, err := r.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := atWallClock(date, r.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start time: %w", err)
	}
	end, err := atWallClock(date, r.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end time: %w", err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start.UTC(), end.UTC(), nil
}

// EligibleAt reports whether the rule's status allows generation: active, or
// paused with the pause already expired.
func (r *RecurringBooking) EligibleAt(now time.Time) bool {
	switch r.Status {
	case RecurringActive:
		return true
	case RecurringPaused:
		return r.PausedUntil == nil || !r.PausedUntil.After(now)
	}
	return false
}

// DueForGeneration is the full selection predicate: eligible status, start/end
// window open, and watermark behind the cutoff or a stale run timestamp
// (stuck-run recovery).
func (r *RecurringBooking) DueForGeneration(now, cutoff, lookBack time.Time) bool {
	if !r.EligibleAt(now) {
		return false
	}
	if r.RecurrenceStartDate.After(cutoff) {
		return false
	}
	today := midnightIn(now, time.UTC)
	if r.RecurrenceEndDate != nil && r.RecurrenceEndDate.Before(today) {
		return false
	}
	if r.LastGeneratedUntil == nil || r.LastGeneratedUntil.Before(cutoff) {
		return true
	}
	return r.LastGenerationRunAt != nil && r.LastGenerationRunAt.Before(lookBack)
}

func midnightIn(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// civilMidnight takes the calendar date of t as transmitted (its UTC date)
// and pins it to midnight in loc, returned as a UTC instant.
func civilMidnight(t time.Time, loc *time.Location) time.Time {
	d := t.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).UTC()
}

func atWallClock(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	wall, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), wall.Hour(), wall.Minute(), 0, 0, loc), nil
}

// daysBetween counts civil days between two local midnights. Rounding absorbs
// DST transitions.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// weeksBetween counts Monday-aligned weeks between the weeks containing a and b.
func weeksBetween(a, b time.Time) int {
	return daysBetween(weekStart(a), weekStart(b)) / 7
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
