package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/latefee"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/repository"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/service"
)

// Handlers are thin adapters: parse, call the service, map the result. All
// decisions live below.
type BookingHandler struct {
	adm   *service.AdmissionSvc
	avail *service.AvailabilitySvc
	ci    *service.CheckInSvc
}

func NewBookingHandler(adm *service.AdmissionSvc, avail *service.AvailabilitySvc, ci *service.CheckInSvc) *BookingHandler {
	return &BookingHandler{adm: adm, avail: avail, ci: ci}
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrVehicleRequired),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrTemplateDuration),
		errors.Is(err, domain.ErrInvalidRule),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrBookingClosed):
		return http.StatusConflict
	case errors.Is(err, latefee.ErrBandGap):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func admissionJSON(c *gin.Context, res *service.AdmissionResult) {
	switch res.Outcome {
	case service.OutcomeRejected:
		c.JSON(http.StatusConflict, gin.H{
			"outcome":       res.Outcome,
			"has_conflicts": true,
			"conflicts":     res.Conflicts,
		})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"outcome":       res.Outcome,
			"booking":       res.Booking,
			"cancelled_ids": res.CancelledIDs,
		})
	}
}

// POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var in struct {
		VehicleID string `json:"vehicle_id" binding:"required"`
		GroupID   string `json:"group_id"`
		StartISO  string `json:"start_iso" binding:"required"`
		EndISO    string `json:"end_iso" binding:"required"`
		Priority  int    `json:"priority"`
		Emergency bool   `json:"emergency"`
		Purpose   string `json:"purpose"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := parseRFC3339(in.StartISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_iso: " + err.Error()})
		return
	}
	et, err := parseRFC3339(in.EndISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_iso: " + err.Error()})
		return
	}
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)

	res, err := h.adm.TryAdmit(c, service.AdmissionRequest{
		VehicleID:   in.VehicleID,
		GroupID:     in.GroupID,
		UserID:      userID,
		StartAt:     st,
		EndAt:       et,
		Priority:    in.Priority,
		IsEmergency: in.Emergency,
		Purpose:     in.Purpose,
		Notes:       in.Notes,
	})
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	admissionJSON(c, res)
}

// GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.adm.Get(c, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings?page=0&page_size=20&user_id=...&vehicle_id=...&day=RFC3339
func (h *BookingHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	var day *time.Time
	if s := c.Query("day"); s != "" {
		d, err := parseRFC3339(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day: " + err.Error()})
			return
		}
		day = &d
	}
	list, total, err := h.adm.List(c, page, size, c.Query("user_id"), c.Query("vehicle_id"), day)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "bookings": list})
}

// POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	b, err := h.adm.Cancel(c, c.Param("id"), in.Reason)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.adm.SetStatus(c, c.Param("id"), domain.BookingStatus(in.Status))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings/:id/fee
func (h *BookingHandler) Fee(c *gin.Context) {
	fee, err := h.ci.FeeFor(c, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fee)
}

// POST /v1/bookings/:id/checkin
func (h *BookingHandler) CheckIn(c *gin.Context) {
	var in struct {
		ReturnedAtISO string `json:"returned_at_iso" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := parseRFC3339(in.ReturnedAtISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "returned_at_iso: " + err.Error()})
		return
	}
	ci, fee, err := h.ci.RecordCheckIn(c, c.Param("id"), at)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_in": ci, "late_return_fee": fee})
}

// GET /v1/vehicles/:id/availability?from=RFC3339&to=RFC3339
func (h *BookingHandler) Availability(c *gin.Context) {
	from, err := parseRFC3339(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from: " + err.Error()})
		return
	}
	to, err := parseRFC3339(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to: " + err.Error()})
		return
	}
	slots, err := h.avail.FreeSlots(c, c.Param("id"), from, to)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"free_slots": slots})
}

type TemplateHandler struct {
	repo *repository.TemplateRepo
	svc  *service.TemplateSvc
}

func NewTemplateHandler(repo *repository.TemplateRepo, svc *service.TemplateSvc) *TemplateHandler {
	return &TemplateHandler{repo: repo, svc: svc}
}

// POST /v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var in struct {
		Name            string  `json:"name" binding:"required"`
		GroupID         string  `json:"group_id"`
		VehicleID       *string `json:"vehicle_id"`
		DurationMinutes int     `json:"duration_minutes" binding:"required"`
		PreferredStart  string  `json:"preferred_start"`
		Timezone        string  `json:"timezone"`
		Priority        int     `json:"priority"`
		Purpose         string  `json:"purpose"`
		Notes           string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	t := &domain.BookingTemplate{
		Name:            in.Name,
		GroupID:         in.GroupID,
		UserID:          userID,
		VehicleID:       in.VehicleID,
		DurationMinutes: in.DurationMinutes,
		PreferredStart:  in.PreferredStart,
		Timezone:        in.Timezone,
		Priority:        in.Priority,
		Purpose:         in.Purpose,
		Notes:           in.Notes,
	}
	if err := h.repo.Create(c, t); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GET /v1/templates?group_id=...
func (h *TemplateHandler) List(c *gin.Context) {
	list, err := h.repo.ListByGroup(c, c.Query("group_id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}

// POST /v1/templates/:id/instantiate
func (h *TemplateHandler) Instantiate(c *gin.Context) {
	var in struct {
		DateISO   string `json:"date_iso" binding:"required"`
		VehicleID string `json:"vehicle_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseRFC3339(in.DateISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_iso: " + err.Error()})
		return
	}
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	res, err := h.svc.Instantiate(c, c.Param("id"), date, in.VehicleID, userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	admissionJSON(c, res)
}

type RecurringHandler struct {
	repo *repository.RecurringRepo
	gen  *service.RecurrenceSvc
}

func NewRecurringHandler(repo *repository.RecurringRepo, gen *service.RecurrenceSvc) *RecurringHandler {
	return &RecurringHandler{repo: repo, gen: gen}
}

// POST /v1/recurring
func (h *RecurringHandler) Create(c *gin.Context) {
	var in struct {
		VehicleID     string `json:"vehicle_id" binding:"required"`
		GroupID       string `json:"group_id"`
		Pattern       string `json:"pattern" binding:"required"`
		IntervalValue int    `json:"interval_value"`
		DaysOfWeek    string `json:"days_of_week"`
		StartTime     string `json:"start_time" binding:"required"`
		EndTime       string `json:"end_time" binding:"required"`
		Timezone      string `json:"timezone"`
		StartDateISO  string `json:"start_date_iso" binding:"required"`
		EndDateISO    string `json:"end_date_iso"`
		Priority      int    `json:"priority"`
		Purpose       string `json:"purpose"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	startDate, err := parseRFC3339(in.StartDateISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date_iso: " + err.Error()})
		return
	}
	var endDate *time.Time
	if in.EndDateISO != "" {
		d, err := parseRFC3339(in.EndDateISO)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date_iso: " + err.Error()})
			return
		}
		endDate = &d
	}
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	rb := &domain.RecurringBooking{
		VehicleID:           in.VehicleID,
		GroupID:             in.GroupID,
		UserID:              userID,
		Pattern:             domain.RecurrencePattern(in.Pattern),
		IntervalValue:       in.IntervalValue,
		DaysOfWeek:          in.DaysOfWeek,
		StartTime:           in.StartTime,
		EndTime:             in.EndTime,
		Timezone:            in.Timezone,
		RecurrenceStartDate: startDate,
		RecurrenceEndDate:   endDate,
		Priority:            in.Priority,
		Purpose:             in.Purpose,
		Notes:               in.Notes,
	}
	// Malformed rules must fail here, not as endlessly retried generation
	// errors.
	if err := rb.Normalize(); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Create(c, rb); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rb)
}

// GET /v1/recurring/:id
func (h *RecurringHandler) Get(c *gin.Context) {
	rb, err := h.repo.ByID(c, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rb)
}

// POST /v1/recurring/:id/pause
func (h *RecurringHandler) Pause(c *gin.Context) {
	var in struct {
		UntilISO string `json:"until_iso"`
	}
	_ = c.ShouldBindJSON(&in)
	var until *time.Time
	if in.UntilISO != "" {
		t, err := parseRFC3339(in.UntilISO)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until_iso: " + err.Error()})
			return
		}
		until = &t
	}
	rb, err := h.repo.SetStatus(c, c.Param("id"), domain.RecurringPaused, until)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rb)
}

// POST /v1/recurring/:id/resume
func (h *RecurringHandler) Resume(c *gin.Context) {
	rb, err := h.repo.SetStatus(c, c.Param("id"), domain.RecurringActive, nil)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rb)
}

// POST /v1/recurring/:id/cancel
func (h *RecurringHandler) CancelRule(c *gin.Context) {
	rb, err := h.repo.SetStatus(c, c.Param("id"), domain.RecurringCancelled, nil)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rb)
}

// POST /v1/recurring/run (ADMIN) — triggers a generation batch out of band.
func (h *RecurringHandler) RunGeneration(c *gin.Context) {
	var in struct {
		HorizonDays int `json:"horizon_days"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.HorizonDays <= 0 {
		in.HorizonDays = 14
	}
	report, err := h.gen.Run(c, time.Now().UTC(), in.HorizonDays)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
