package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrTemplateDuration = errors.New("template duration must be positive")

// BookingTemplate is a reusable draft stamped out against a chosen date. It
// carries no interval state of its own.
type BookingTemplate struct {
	ID      string `gorm:"primaryKey"`
	GroupID string `gorm:"index"`
	UserID  string `gorm:"index"`
	Name    string
	// VehicleID pins the template to one vehicle; nil means the caller picks.
	VehicleID       *string
	DurationMinutes int
	PreferredStart  string // "15:04", empty defaults to 09:00
	Timezone        string // IANA name, empty means UTC
	Priority        int
	Purpose         string
	Notes           string
	UsageCount      int
	Timestamps      `gorm:"embedded"`
}

// Window resolves the concrete [start, end) instants for the template applied
// to a target date, in UTC.
func (t *BookingTemplate) Window(date time.Time) (time.Time, time.Time, error) {
	if t.DurationMinutes <= 0 {
		return time.Time{}, time.Time{}, ErrTemplateDuration
	}
	loc := time.UTC
	if t.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(t.Timezone); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("load timezone %q: %w", t.Timezone, err)
		}
	}
	hhmm := t.PreferredStart
	if hhmm == "" {
		hhmm = "09:00"
	}
	start, err := atWallClock(date, hhmm, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("preferred start: %w", err)
	}
	end := start.Add(time.Duration(t.DurationMinutes) * time.Minute)
	return start.UTC(), end.UTC(), nil
}
