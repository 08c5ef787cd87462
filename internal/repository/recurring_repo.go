package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

type RecurringRepo struct{ db *gorm.DB }

func NewRecurringRepo(db *gorm.DB) *RecurringRepo {
	return &RecurringRepo{db: db}
}

func (r *RecurringRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.RecurringBooking{})
}

func (r *RecurringRepo) Create(ctx context.Context, rb *domain.RecurringBooking) error {
	if rb.ID == "" {
		rb.ID = uuid.NewString()
	}
	if rb.Status == "" {
		rb.Status = domain.RecurringActive
	}
	return r.db.WithContext(ctx).Create(rb).Error
}

func (r *RecurringRepo) ByID(ctx context.Context, id string) (*domain.RecurringBooking, error) {
	var rb domain.RecurringBooking
	if err := r.db.WithContext(ctx).First(&rb, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rb, nil
}

// SetStatus drives pause/resume/cancel. pausedUntil only matters for PAUSED.
func (r *RecurringRepo) SetStatus(ctx context.Context, id string, status domain.RecurringStatus, pausedUntil *time.Time) (*domain.RecurringBooking, error) {
	var rb domain.RecurringBooking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rb, "id = ?", id).Error; err != nil {
			return err
		}
		rb.Status = status
		rb.PausedUntil = nil
		if status == domain.RecurringPaused {
			rb.PausedUntil = pausedUntil
		}
		return tx.Save(&rb).Error
	})
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

// FindDue selects the rules eligible for a generation pass: active (or paused
// with the pause expired), start date before the cutoff, end date not in the
// past, and a watermark behind the cutoff — or a run timestamp older than the
// look-back cutoff, which recovers runs that started but never committed.
func (r *RecurringRepo) FindDue(ctx context.Context, now, cutoff, lookBack time.Time) ([]domain.RecurringBooking, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []domain.RecurringBooking
	err := r.db.WithContext(ctx).
		Where("(status = ? OR (status = ? AND (paused_until IS NULL OR paused_until <= ?)))",
			domain.RecurringActive, domain.RecurringPaused, now).
		Where("recurrence_start_date <= ?", cutoff).
		Where("(recurrence_end_date IS NULL OR recurrence_end_date >= ?)", today).
		Where("(last_generated_until IS NULL OR last_generated_until < ? OR last_generation_run_at < ?)",
			cutoff, lookBack).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyGeneration commits one rule's generation pass atomically: every
// non-conflicting candidate is inserted, conflicting candidates are counted
// as gaps, and the watermark plus run timestamp advance in the same
// transaction. On error the transaction rolls back and the watermark stays
// put, so the next run retries the same window.
func (r *RecurringRepo) ApplyGeneration(ctx context.Context, rule *domain.RecurringBooking, candidates []domain.Booking, cutoff, runAt time.Time) (int, int, error) {
	var created, gaps int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockVehicle(tx, rule.VehicleID); err != nil {
			return err
		}
		for i := range candidates {
			c := &candidates[i]
			found, err := lockOverlapping(tx, c.VehicleID, c.StartAt, c.EndAt, "")
			if err != nil {
				return err
			}
			if len(found) > 0 {
				gaps++
				continue
			}
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if err := tx.Create(c).Error; err != nil {
				return err
			}
			created++
		}

		// The watermark never regresses: a stuck-run recovery pass may run
		// with a cutoff behind an already-advanced watermark.
		watermark := cutoff
		if rule.LastGeneratedUntil != nil && rule.LastGeneratedUntil.After(watermark) {
			watermark = *rule.LastGeneratedUntil
		}
		res := tx.Model(&domain.RecurringBooking{}).Where("id = ?", rule.ID).
			Updates(map[string]any{
				"last_generated_until":   watermark,
				"last_generation_run_at": runAt,
			})
		if res.Error != nil {
			return res.Error
		}
		rule.LastGeneratedUntil = &watermark
		rule.LastGenerationRunAt = &runAt
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, gaps, nil
}
