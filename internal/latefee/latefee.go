// Package latefee maps late-return durations onto a banded fee table.
package latefee

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBandGap means the lateness fell into a hole in the configured band
// table. It is a configuration error and must never be reported as a zero fee.
var ErrBandGap = errors.New("latefee: lateness not covered by any band")

// Band is one [FromMinutes, ToMinutes) range of the table. A nil ToMinutes
// makes the band unbounded.
type Band struct {
	FromMinutes int     `json:"from_minutes"`
	ToMinutes   *int    `json:"to_minutes,omitempty"`
	RatePerHour float64 `json:"rate_per_hour"`
	FlatFee     float64 `json:"flat_fee,omitempty"`
	Label       string  `json:"label,omitempty"`
}

func (b Band) contains(lateMinutes float64) bool {
	if lateMinutes < float64(b.FromMinutes) {
		return false
	}
	return b.ToMinutes == nil || lateMinutes < float64(*b.ToMinutes)
}

// Options is the immutable fee configuration loaded at process start.
type Options struct {
	GraceMinutes int
	MaxFee       float64
	Bands        []Band
}

// Assessment is the outcome of one fee computation.
type Assessment struct {
	LateMinutes int
	Amount      float64
	BandLabel   string
}

// ParseBands decodes and validates a JSON band table.
func ParseBands(raw string) ([]Band, error) {
	var bands []Band
	if err := json.Unmarshal([]byte(raw), &bands); err != nil {
		return nil, fmt.Errorf("latefee: parse bands: %w", err)
	}
	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	return bands, nil
}

// ValidateBands enforces the table invariants eagerly: non-empty, sorted
// ascending by FromMinutes, sane bounds, no overlaps. Gaps are permitted here
// and surface as ErrBandGap at computation time.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return errors.New("latefee: band table is empty")
	}
	for i, b := range bands {
		if b.FromMinutes < 0 {
			return fmt.Errorf("latefee: band %d has negative from_minutes", i)
		}
		if b.ToMinutes != nil && *b.ToMinutes <= b.FromMinutes {
			return fmt.Errorf("latefee: band %d has to_minutes <= from_minutes", i)
		}
		if b.RatePerHour < 0 || b.FlatFee < 0 {
			return fmt.Errorf("latefee: band %d has a negative rate", i)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.FromMinutes < prev.FromMinutes {
			return fmt.Errorf("latefee: band %d out of order", i)
		}
		if prev.ToMinutes == nil || b.FromMinutes < *prev.ToMinutes {
			return fmt.Errorf("latefee: bands %d and %d overlap", i-1, i)
		}
	}
	return nil
}

// Fee computes the late-return fee for an actual return against a scheduled
// end. Lateness inside the grace period costs nothing. The result is clamped
// to [0, MaxFee] when MaxFee is positive.
func (o Options) Fee(scheduledEnd, actualReturn time.Time) (Assessment, error) {
	late := actualReturn.Sub(scheduledEnd).Minutes() - float64(o.GraceMinutes)
	if late <= 0 {
		return Assessment{}, nil
	}

	for _, b := range o.Bands {
		if !b.contains(late) {
			continue
		}
		amount := b.FlatFee + b.RatePerHour*late/60
		if amount < 0 {
			amount = 0
		}
		if o.MaxFee > 0 && amount > o.MaxFee {
			amount = o.MaxFee
		}
		return Assessment{LateMinutes: int(late), Amount: amount, BandLabel: b.Label}, nil
	}
	return Assessment{}, fmt.Errorf("%w: %d minutes", ErrBandGap, int(late))
}
