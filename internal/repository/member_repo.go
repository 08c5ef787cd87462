package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

type MemberRepo struct{ db *gorm.DB }

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Member{}, &domain.EventConsumed{})
}

// UpsertIfNotProcessed applies a user event exactly once. Delivery is
// at-least-once, so the event id is recorded in event_consumed inside the
// same transaction as the upsert; replays return processed=false and change
// nothing.
func (r *MemberRepo) UpsertIfNotProcessed(ctx context.Context, m *domain.Member, eventID, eventKey string) (bool, error) {
	processed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", eventID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "role", "updated_at"}),
		}).Create(m).Error; err != nil {
			return err
		}

		rec := domain.EventConsumed{ID: eventID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		processed = true
		return nil
	})
	return processed, err
}

func (r *MemberRepo) ByID(ctx context.Context, id string) (*domain.Member, error) {
	var m domain.Member
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
