package domain

import (
	"testing"
	"time"
)

func TestBookingOverlapsHalfOpen(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	b := &Booking{StartAt: at(10), EndAt: at(12)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", at(10).Add(30 * time.Minute), at(11), true},
		{"straddles start", at(9), at(11), true},
		{"straddles end", at(11), at(13), true},
		{"covers", at(9), at(13), true},
		{"touches end boundary", at(12), at(13), false},
		{"touches start boundary", at(9), at(10), false},
		{"before", at(7), at(9), false},
		{"after", at(13), at(15), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	active := []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress}
	for _, st := range active {
		if !(&Booking{Status: st}).IsActive() {
			t.Errorf("status %s should be active", st)
		}
	}
	for _, st := range []BookingStatus{BookingCompleted, BookingCancelled} {
		if (&Booking{Status: st}).IsActive() {
			t.Errorf("status %s should not be active", st)
		}
	}
}

func TestComputePriorityScore(t *testing.T) {
	if got := ComputePriorityScore(3, false, 100); got != 3 {
		t.Errorf("score = %v, want 3", got)
	}
	if got := ComputePriorityScore(3, true, 100); got != 103 {
		t.Errorf("emergency score = %v, want 103", got)
	}
	// An emergency with low priority still outranks any plain request whose
	// priority stays below the boost.
	if ComputePriorityScore(0, true, 100) <= ComputePriorityScore(99, false, 100) {
		t.Error("emergency boost should dominate plain priorities below the boost")
	}
}

func TestValidateInterval(t *testing.T) {
	now := time.Now()
	if err := ValidateInterval(now, now); err == nil {
		t.Error("equal start/end should be invalid")
	}
	if err := ValidateInterval(now.Add(time.Hour), now); err == nil {
		t.Error("end before start should be invalid")
	}
	if err := ValidateInterval(now, now.Add(time.Hour)); err != nil {
		t.Errorf("valid interval rejected: %v", err)
	}
}
