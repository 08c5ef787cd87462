package service

import (
	"context"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
)

// TemplateSvc stamps a saved template out into a concrete booking request and
// hands it to the admission service.
type TemplateSvc struct {
	templates TemplateStore
	admission *AdmissionSvc
	log       logger.Logger
}

func NewTemplateSvc(templates TemplateStore, admission *AdmissionSvc, log logger.Logger) *TemplateSvc {
	return &TemplateSvc{templates: templates, admission: admission, log: log}
}

// Instantiate builds the request for the target date. The template's fixed
// vehicle wins over the caller-supplied one; with neither the request is
// invalid. The usage counter moves only when the booking was admitted.
func (s *TemplateSvc) Instantiate(ctx context.Context, templateID string, date time.Time, vehicleID, userID string) (*AdmissionResult, error) {
	t, err := s.templates.ByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	vid := vehicleID
	if t.VehicleID != nil && *t.VehicleID != "" {
		vid = *t.VehicleID
	}
	if vid == "" {
		return nil, domain.ErrVehicleRequired
	}

	start, end, err := t.Window(date)
	if err != nil {
		return nil, err
	}

	res, err := s.admission.TryAdmit(ctx, AdmissionRequest{
		VehicleID: vid,
		GroupID:   t.GroupID,
		UserID:    userID,
		StartAt:   start,
		EndAt:     end,
		Priority:  t.Priority,
		Purpose:   t.Purpose,
		Notes:     t.Notes,
	})
	if err != nil {
		return nil, err
	}
	if res.Outcome != OutcomeRejected {
		if err := s.templates.IncrementUsage(ctx, t.ID); err != nil {
			s.log.Warn("increment template usage", "template_id", t.ID, "error", err)
		}
	}
	return res, nil
}
