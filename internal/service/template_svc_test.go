package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
)

func strp(s string) *string { return &s }

func templateFixture() (*fakeBookingStore, *fakeTemplateStore, *TemplateSvc) {
	store := newFakeBookingStore()
	templates := newFakeTemplateStore()
	adm := newAdmission(store, &fakePublisher{})
	svc := NewTemplateSvc(templates, adm, logger.NewNop())
	return store, templates, svc
}

func TestInstantiateUsesTemplateWindow(t *testing.T) {
	store, templates, svc := templateFixture()
	templates.templates["tpl-1"] = &domain.BookingTemplate{
		ID: "tpl-1", GroupID: "grp-1",
		VehicleID:       strp("veh-9"),
		DurationMinutes: 120,
		PreferredStart:  "08:30",
		Priority:        2,
		Purpose:         "school run",
	}

	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	res, err := svc.Instantiate(context.Background(), "tpl-1", date, "", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeAdmitted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	b := res.Booking
	if b.VehicleID != "veh-9" {
		t.Errorf("vehicle = %s, want the template's fixed vehicle", b.VehicleID)
	}
	if !b.StartAt.Equal(time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("start = %v", b.StartAt)
	}
	if got := b.EndAt.Sub(b.StartAt); got != 2*time.Hour {
		t.Errorf("duration = %v, want 2h", got)
	}
	if b.Purpose != "school run" || b.Priority != 2 {
		t.Errorf("booking did not inherit template fields: %+v", b)
	}
	if templates.templates["tpl-1"].UsageCount != 1 {
		t.Error("usage counter should increment on admission")
	}
	if len(store.bookings) != 1 {
		t.Error("booking should be persisted")
	}
}

func TestInstantiateFixedVehicleWinsOverCaller(t *testing.T) {
	_, templates, svc := templateFixture()
	templates.templates["tpl-1"] = &domain.BookingTemplate{
		ID: "tpl-1", VehicleID: strp("veh-9"), DurationMinutes: 60,
	}

	res, err := svc.Instantiate(context.Background(), "tpl-1",
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "veh-other", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Booking.VehicleID != "veh-9" {
		t.Errorf("vehicle = %s, want veh-9", res.Booking.VehicleID)
	}
}

func TestInstantiateCallerVehicleWhenUnpinned(t *testing.T) {
	_, templates, svc := templateFixture()
	templates.templates["tpl-1"] = &domain.BookingTemplate{ID: "tpl-1", DurationMinutes: 60}

	res, err := svc.Instantiate(context.Background(), "tpl-1",
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "veh-5", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Booking.VehicleID != "veh-5" {
		t.Errorf("vehicle = %s, want veh-5", res.Booking.VehicleID)
	}
}

func TestInstantiateNoVehicleAnywhereFails(t *testing.T) {
	_, templates, svc := templateFixture()
	templates.templates["tpl-1"] = &domain.BookingTemplate{ID: "tpl-1", DurationMinutes: 60}

	_, err := svc.Instantiate(context.Background(), "tpl-1",
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "", "user-1")
	if !errors.Is(err, domain.ErrVehicleRequired) {
		t.Fatalf("err = %v, want ErrVehicleRequired", err)
	}
}

func TestInstantiateConflictDoesNotCountUsage(t *testing.T) {
	store, templates, svc := templateFixture()
	templates.templates["tpl-1"] = &domain.BookingTemplate{
		ID: "tpl-1", VehicleID: strp("veh-9"), DurationMinutes: 60, PreferredStart: "09:00",
	}
	store.add(&domain.Booking{
		VehicleID: "veh-9",
		StartAt:   time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
		Status:    domain.BookingConfirmed,
	})

	res, err := svc.Instantiate(context.Background(), "tpl-1",
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s, want rejection", res.Outcome)
	}
	if templates.templates["tpl-1"].UsageCount != 0 {
		t.Error("usage counter must not move on rejection")
	}
}
