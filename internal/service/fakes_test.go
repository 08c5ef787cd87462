package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
)

// fakeBookingStore mirrors the gorm repository's transactional semantics
// in memory: the overlap check and any writes are one atomic step.
type fakeBookingStore struct {
	bookings map[string]*domain.Booking
	seq      int
	failNext error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: map[string]*domain.Booking{}}
}

func (f *fakeBookingStore) nextID() string {
	f.seq++
	return fmt.Sprintf("bk-%d", f.seq)
}

func (f *fakeBookingStore) add(b *domain.Booking) *domain.Booking {
	if b.ID == "" {
		b.ID = f.nextID()
	}
	b.CreatedAt = time.Unix(int64(f.seq), 0)
	f.bookings[b.ID] = b
	return b
}

func (f *fakeBookingStore) overlapping(vehicleID string, start, end time.Time, excludeID string) []domain.Booking {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.VehicleID != vehicleID || b.ID == excludeID || !b.IsActive() {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeBookingStore) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBookingStore) FindOverlapping(_ context.Context, vehicleID string, start, end time.Time, excludeID string) ([]domain.Booking, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	out := f.overlapping(vehicleID, start, end, excludeID)
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (f *fakeBookingStore) CreateIfAvailable(_ context.Context, b *domain.Booking) ([]domain.Booking, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	if conflicts := f.overlapping(b.VehicleID, b.StartAt, b.EndAt, ""); len(conflicts) > 0 {
		return conflicts, nil
	}
	f.add(b)
	return nil, nil
}

func (f *fakeBookingStore) CreateWithDisplacement(_ context.Context, b *domain.Booking, score float64) ([]domain.Booking, []string, error) {
	if err := f.takeErr(); err != nil {
		return nil, nil, err
	}
	found := f.overlapping(b.VehicleID, b.StartAt, b.EndAt, "")
	for _, c := range found {
		if c.PriorityScore >= score {
			return found, nil, nil
		}
	}
	if b.ID == "" {
		b.ID = f.nextID()
	}
	var cancelled []string
	for _, c := range found {
		victim := f.bookings[c.ID]
		victim.Status = domain.BookingCancelled
		victim.CancelReason = fmt.Sprintf("displaced by emergency booking %s", b.ID)
		cancelled = append(cancelled, c.ID)
	}
	f.add(b)
	return nil, cancelled, nil
}

func (f *fakeBookingStore) ByID(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) Cancel(_ context.Context, id, reason string) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if b.Status == domain.BookingCompleted || b.Status == domain.BookingCancelled {
		return nil, domain.ErrBookingClosed
	}
	b.Status = domain.BookingCancelled
	b.CancelReason = reason
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) UpdateStatus(_ context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if b.Status == domain.BookingCompleted || b.Status == domain.BookingCancelled {
		return nil, domain.ErrBookingClosed
	}
	b.Status = to
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) List(_ context.Context, page, size int, userID, vehicleID string, day *time.Time) ([]domain.Booking, int64, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if userID != "" && b.UserID != userID {
			continue
		}
		if vehicleID != "" && b.VehicleID != vehicleID {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, int64(len(out)), nil
}

// fakeRecurringStore keeps rules in memory and applies generation against a
// fakeBookingStore, committing the watermark the way the repository does.
type fakeRecurringStore struct {
	rules    map[string]*domain.RecurringBooking
	bookings *fakeBookingStore
	failNext error
}

func newFakeRecurringStore(bookings *fakeBookingStore) *fakeRecurringStore {
	return &fakeRecurringStore{rules: map[string]*domain.RecurringBooking{}, bookings: bookings}
}

func (f *fakeRecurringStore) add(r *domain.RecurringBooking) *domain.RecurringBooking {
	if r.ID == "" {
		r.ID = fmt.Sprintf("rule-%d", len(f.rules)+1)
	}
	if r.Status == "" {
		r.Status = domain.RecurringActive
	}
	f.rules[r.ID] = r
	return r
}

func (f *fakeRecurringStore) FindDue(_ context.Context, now, cutoff, lookBack time.Time) ([]domain.RecurringBooking, error) {
	var out []domain.RecurringBooking
	for _, r := range f.rules {
		if r.DueForGeneration(now, cutoff, lookBack) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecurringStore) ApplyGeneration(_ context.Context, rule *domain.RecurringBooking, candidates []domain.Booking, cutoff, runAt time.Time) (int, int, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, 0, err
	}
	var created, gaps int
	for i := range candidates {
		c := candidates[i]
		if len(f.bookings.overlapping(c.VehicleID, c.StartAt, c.EndAt, "")) > 0 {
			gaps++
			continue
		}
		f.bookings.add(&c)
		created++
	}
	watermark := cutoff
	if rule.LastGeneratedUntil != nil && rule.LastGeneratedUntil.After(watermark) {
		watermark = *rule.LastGeneratedUntil
	}
	stored := f.rules[rule.ID]
	stored.LastGeneratedUntil = &watermark
	stored.LastGenerationRunAt = &runAt
	rule.LastGeneratedUntil = &watermark
	rule.LastGenerationRunAt = &runAt
	return created, gaps, nil
}

type fakeTemplateStore struct {
	templates map[string]*domain.BookingTemplate
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: map[string]*domain.BookingTemplate{}}
}

func (f *fakeTemplateStore) ByID(_ context.Context, id string) (*domain.BookingTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplateStore) IncrementUsage(_ context.Context, id string) error {
	t, ok := f.templates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.UsageCount++
	return nil
}

// fakeCheckInStore mirrors CheckInRepo.Complete: one check-in per booking,
// fee attached atomically, booking moved to COMPLETED.
type fakeCheckInStore struct {
	bookings *fakeBookingStore
	checkins map[string]*domain.CheckIn
	fees     map[string]*domain.LateReturnFee
}

func newFakeCheckInStore(bookings *fakeBookingStore) *fakeCheckInStore {
	return &fakeCheckInStore{
		bookings: bookings,
		checkins: map[string]*domain.CheckIn{},
		fees:     map[string]*domain.LateReturnFee{},
	}
}

func (f *fakeCheckInStore) Complete(_ context.Context, ci *domain.CheckIn, fee *domain.LateReturnFee) error {
	if _, ok := f.checkins[ci.BookingID]; ok {
		return domain.ErrAlreadyCheckedIn
	}
	f.checkins[ci.BookingID] = ci
	if fee != nil {
		f.fees[ci.BookingID] = fee
	}
	if b, ok := f.bookings.bookings[ci.BookingID]; ok {
		b.Status = domain.BookingCompleted
	}
	return nil
}

func (f *fakeCheckInStore) FeeByBooking(_ context.Context, bookingID string) (*domain.LateReturnFee, error) {
	fee, ok := f.fees[bookingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *fee
	return &cp, nil
}

type fakeMemberStore struct {
	members map[string]*domain.Member
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{members: map[string]*domain.Member{}}
}

func (f *fakeMemberStore) ByID(_ context.Context, id string) (*domain.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

type publishedEvent struct {
	Key  string
	Data any
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(_ context.Context, key string, data any) error {
	f.events = append(f.events, publishedEvent{Key: key, Data: data})
	return nil
}

func (f *fakePublisher) keys() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Key
	}
	return out
}
