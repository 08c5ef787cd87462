package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

type TemplateRepo struct{ db *gorm.DB }

func NewTemplateRepo(db *gorm.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

func (r *TemplateRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.BookingTemplate{})
}

func (r *TemplateRepo) Create(ctx context.Context, t *domain.BookingTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TemplateRepo) ByID(ctx context.Context, id string) (*domain.BookingTemplate, error) {
	var t domain.BookingTemplate
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepo) ListByGroup(ctx context.Context, groupID string) ([]domain.BookingTemplate, error) {
	var out []domain.BookingTemplate
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *TemplateRepo) IncrementUsage(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.BookingTemplate{}).Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
