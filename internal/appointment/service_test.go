package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"randevu/internal/auth"
	"randevu/internal/client"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeScheduler records the lifecycle's scheduling calls so tests can check
// the boundary contract without a real job store.
type fakeScheduler struct {
	scheduled map[uint64]time.Time
	cancelled []uint64
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[uint64]time.Time{}}
}

func (f *fakeScheduler) Schedule(id uint64, fireAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled[id] = fireAt
	return nil
}

func (f *fakeScheduler) Reschedule(id uint64, fireAt time.Time) error {
	return f.Schedule(id, fireAt)
}

func (f *fakeScheduler) Cancel(id uint64) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, id)
	delete(f.scheduled, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeScheduler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&auth.User{}, &client.Client{}, &Appointment{}, &BlockedDay{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sched := newFakeScheduler()
	return NewService(gdb, sched, 24*time.Hour), sched, gdb
}

func seedUser(t *testing.T, gdb *gorm.DB) *auth.User {
	t.Helper()
	u := &auth.User{
		Email:        "ayse@example.com",
		PasswordHash: "x",
		FirstName:    "Ayşe",
		LastName:     "Yılmaz",
		Phone:        "05321234567",
		BookingLink:  "abc-123",
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func futureInput(start time.Time) CreateInput {
	return CreateInput{
		Title: "Pilates Dersi",
		Date:  start.Format(DateLayout),
		Time:  start.Format(TimeLayout),
	}
}

func TestCreateSchedulesReminderAtLeadOffset(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	start := time.Now().Add(30 * time.Hour)
	a, err := svc.Create(context.Background(), u.ID, futureInput(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", a.Status)
	}

	fireAt, ok := sched.scheduled[a.ID]
	if !ok {
		t.Fatal("reminder was not scheduled")
	}

	startInstant, err := a.StartsAt()
	if err != nil {
		t.Fatalf("StartsAt: %v", err)
	}
	if want := startInstant.Add(-24 * time.Hour); !fireAt.Equal(want) {
		t.Errorf("fire at %s, want %s (start minus lead)", fireAt, want)
	}
}

func TestCreateSoonAppointmentSkipsReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	// Start is only 2h out; the reminder instant is already past.
	start := time.Now().Add(2 * time.Hour)
	a, err := svc.Create(context.Background(), u.ID, futureInput(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, ok := sched.scheduled[a.ID]; ok {
		t.Error("schedule must not be called when the reminder instant is past")
	}
}

func TestEditMovesReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	a, err := svc.Create(context.Background(), u.ID, futureInput(time.Now().Add(30*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newStart := time.Now().Add(50 * time.Hour)
	newDate := newStart.Format(DateLayout)
	newTime := newStart.Format(TimeLayout)
	a, err = svc.Update(context.Background(), u.ID, a.ID, UpdateInput{Date: &newDate, Time: &newTime})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	fireAt, ok := sched.scheduled[a.ID]
	if !ok {
		t.Fatal("reminder gone after edit")
	}
	startInstant, _ := a.StartsAt()
	if want := startInstant.Add(-24 * time.Hour); !fireAt.Equal(want) {
		t.Errorf("fire at %s, want %s", fireAt, want)
	}
}

func TestEditToSoonStartCancelsReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	a, err := svc.Create(context.Background(), u.ID, futureInput(time.Now().Add(30*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newStart := time.Now().Add(3 * time.Hour)
	newDate := newStart.Format(DateLayout)
	newTime := newStart.Format(TimeLayout)
	if _, err := svc.Update(context.Background(), u.ID, a.ID, UpdateInput{Date: &newDate, Time: &newTime}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, ok := sched.scheduled[a.ID]; ok {
		t.Error("reminder should be cancelled when the new reminder instant is past")
	}
}

func TestStatusChangeCancelsAndRestoresReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	a, err := svc.Create(context.Background(), u.ID, futureInput(time.Now().Add(30*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), u.ID, a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel status: %v", err)
	}
	if _, ok := sched.scheduled[a.ID]; ok {
		t.Fatal("reminder survived cancellation")
	}

	if _, err := svc.UpdateStatus(context.Background(), u.ID, a.ID, StatusScheduled); err != nil {
		t.Fatalf("restore status: %v", err)
	}
	if _, ok := sched.scheduled[a.ID]; !ok {
		t.Fatal("reminder not re-scheduled after status returned to scheduled")
	}
}

func TestDeleteCancelsReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	a, err := svc.Create(context.Background(), u.ID, futureInput(time.Now().Add(30*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), u.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := sched.scheduled[a.ID]; ok {
		t.Error("reminder survived deletion")
	}
	if _, err := svc.Get(context.Background(), u.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestSchedulerFailureDoesNotFailMutation(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)
	sched.err = errors.New("job store down")

	a, err := svc.Create(context.Background(), u.ID, futureInput(time.Now().Add(30*time.Hour)))
	if err != nil {
		t.Fatalf("create must succeed despite scheduler failure: %v", err)
	}
	if _, err := svc.Get(context.Background(), u.ID, a.ID); err != nil {
		t.Fatalf("appointment was not persisted: %v", err)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc, _, gdb := newTestService(t)
	u := seedUser(t, gdb)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	if _, err := svc.Create(context.Background(), u.ID, futureInput(start)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// 30 minutes into the existing hour-long slot.
	in := futureInput(start.Add(30 * time.Minute))
	if _, err := svc.Create(context.Background(), u.ID, in); !errors.Is(err, ErrConflict) {
		t.Errorf("overlapping create = %v, want ErrConflict", err)
	}

	// Directly after is fine.
	in = futureInput(start.Add(60 * time.Minute))
	if _, err := svc.Create(context.Background(), u.ID, in); err != nil {
		t.Errorf("adjacent create = %v, want nil", err)
	}
}

func TestCreateRejectsBlockedDay(t *testing.T) {
	svc, _, gdb := newTestService(t)
	u := seedUser(t, gdb)

	start := time.Now().Add(48 * time.Hour)
	if _, err := svc.BlockDay(context.Background(), u.ID, start.Format(DateLayout), "tatil"); err != nil {
		t.Fatalf("block day: %v", err)
	}

	if _, err := svc.Create(context.Background(), u.ID, futureInput(start)); !errors.Is(err, ErrBlockedDay) {
		t.Errorf("create on blocked day = %v, want ErrBlockedDay", err)
	}
}

func TestPublicBookingCreatesPendingWithoutReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	start := time.Now().Add(72 * time.Hour)
	a, err := svc.PublicBook(context.Background(), u.BookingLink, PublicBookingInput{
		Name:  "Mehmet Demir",
		Phone: "05559876543",
		Date:  start.Format(DateLayout),
		Time:  "10:00",
	})
	if err != nil {
		t.Fatalf("public book: %v", err)
	}

	if a.Status != StatusPending {
		t.Errorf("status = %s, want pending", a.Status)
	}
	if a.ClientID == nil {
		t.Fatal("no client record created")
	}
	if len(sched.scheduled) != 0 {
		t.Error("pending booking must not schedule a reminder")
	}

	var c client.Client
	if err := gdb.First(&c, *a.ClientID).Error; err != nil {
		t.Fatalf("load client: %v", err)
	}
	if c.Phone != "05559876543" {
		t.Errorf("client phone = %s", c.Phone)
	}
}

func TestApproveSchedulesReminder(t *testing.T) {
	svc, sched, gdb := newTestService(t)
	u := seedUser(t, gdb)

	start := time.Now().Add(72 * time.Hour)
	a, err := svc.PublicBook(context.Background(), u.BookingLink, PublicBookingInput{
		Name:  "Mehmet Demir",
		Phone: "05559876543",
		Date:  start.Format(DateLayout),
		Time:  "10:00",
	})
	if err != nil {
		t.Fatalf("public book: %v", err)
	}

	approved, err := svc.Approve(context.Background(), u.ID, a.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", approved.Status)
	}
	if _, ok := sched.scheduled[a.ID]; !ok {
		t.Error("approval did not schedule the reminder")
	}

	// Rejecting an already-approved request is invalid.
	if _, err := svc.Reject(context.Background(), u.ID, a.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("reject after approve = %v, want ErrInvalidStatus", err)
	}
}

func TestPublicBookingUnknownLink(t *testing.T) {
	svc, _, gdb := newTestService(t)
	seedUser(t, gdb)

	_, err := svc.PublicBook(context.Background(), "nope", PublicBookingInput{
		Name:  "Mehmet Demir",
		Phone: "05559876543",
		Date:  time.Now().Add(72 * time.Hour).Format(DateLayout),
		Time:  "10:00",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown link = %v, want ErrNotFound", err)
	}
}

func TestPublicBookingRespectsWorkingDays(t *testing.T) {
	svc, _, gdb := newTestService(t)
	u := seedUser(t, gdb)

	// Find the next date at least 3 days out that is a Sunday.
	day := time.Now().AddDate(0, 0, 3)
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}

	if err := gdb.Model(u).Update("working_days", `{monday,tuesday,wednesday,thursday,friday}`).Error; err != nil {
		t.Fatalf("set working days: %v", err)
	}

	_, err := svc.PublicBook(context.Background(), u.BookingLink, PublicBookingInput{
		Name:  "Mehmet Demir",
		Phone: "05559876543",
		Date:  day.Format(DateLayout),
		Time:  "10:00",
	})
	if !errors.Is(err, ErrDayOff) {
		t.Errorf("booking on day off = %v, want ErrDayOff", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, gdb := newTestService(t)
	u := seedUser(t, gdb)

	cases := []CreateInput{
		{Title: "ab", Date: "2030-01-01", Time: "10:00"},               // title too short
		{Title: "Pilates", Date: "01.01.2030", Time: "10:00"},          // bad date format
		{Title: "Pilates", Date: "2030-01-01", Time: "25:00"},          // bad time
		{Title: "Pilates", Date: "2030-01-01", Time: "10:00", Duration: 10},  // too short
		{Title: "Pilates", Date: "2030-01-01", Time: "10:00", Duration: 500}, // too long
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), u.ID, in); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
