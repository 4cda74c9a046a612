package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"randevu/internal/auth"
	"randevu/internal/client"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("time slot not available")
	ErrBlockedDay    = errors.New("day is blocked")
	ErrDayOff        = errors.New("practitioner does not work that day")
	ErrPastDate      = errors.New("date is in the past")
	ErrInvalidStatus = errors.New("invalid status")
)

// Scheduler is the reminder scheduling contract the lifecycle calls at each
// transition. Failures here never roll back the appointment mutation.
type Scheduler interface {
	Schedule(appointmentID uint64, fireAt time.Time) error
	Reschedule(appointmentID uint64, fireAt time.Time) error
	Cancel(appointmentID uint64) error
}

type Service struct {
	DB        *gorm.DB
	Validate  *validator.Validate
	Scheduler Scheduler

	// Lead is how long before the start instant the reminder fires.
	Lead time.Duration
}

func NewService(db *gorm.DB, sched Scheduler, lead time.Duration) *Service {
	return &Service{
		DB:        db,
		Validate:  validator.New(),
		Scheduler: sched,
		Lead:      lead,
	}
}

type CreateInput struct {
	Title       string `validate:"required,min=3,max=100"`
	Description string
	Date        string `validate:"required,datetime=2006-01-02"`
	Time        string `validate:"required,datetime=15:04"`
	Duration    int    `validate:"omitempty,min=15,max=480"`
	ClientID    *uint64
	Location    string
	Notes       string
}

func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*Appointment, error) {
	if err := s.Validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Duration == 0 {
		in.Duration = 60
	}
	if in.Date < time.Now().Format(DateLayout) {
		return nil, ErrPastDate
	}

	if err := s.checkDayFree(ctx, userID, in.Date); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, userID, in.Date, in.Time, in.Duration, 0); err != nil {
		return nil, err
	}

	a := &Appointment{
		UserID:      userID,
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Duration:    in.Duration,
		Status:      StatusScheduled,
		Location:    in.Location,
		Notes:       in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}

	s.syncReminder(a)
	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, id uint64) (*Appointment, error) {
	var a Appointment
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) List(ctx context.Context, userID uint64, status, fromDate string) ([]Appointment, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if fromDate != "" {
		q = q.Where("date >= ?", fromDate)
	}
	var rows []Appointment
	err := q.Order("date asc, time asc").Find(&rows).Error
	return rows, err
}

type UpdateInput struct {
	Title       *string `validate:"omitempty,min=3,max=100"`
	Description *string
	Date        *string `validate:"omitempty,datetime=2006-01-02"`
	Time        *string `validate:"omitempty,datetime=15:04"`
	Duration    *int    `validate:"omitempty,min=15,max=480"`
	ClientID    *uint64
	Location    *string
	Notes       *string
}

func (s *Service) Update(ctx context.Context, userID, id uint64, in UpdateInput) (*Appointment, error) {
	if err := s.Validate.Struct(in); err != nil {
		return nil, err
	}

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Location != nil {
		a.Location = *in.Location
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.ClientID != nil {
		a.ClientID = in.ClientID
	}
	if in.Date != nil {
		if *in.Date < time.Now().Format(DateLayout) {
			return nil, ErrPastDate
		}
		a.Date = *in.Date
	}
	if in.Time != nil {
		a.Time = *in.Time
	}
	if in.Duration != nil {
		a.Duration = *in.Duration
	}

	if in.Date != nil || in.Time != nil || in.Duration != nil {
		if err := s.checkDayFree(ctx, userID, a.Date); err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, userID, a.Date, a.Time, a.Duration, a.ID); err != nil {
			return nil, err
		}
	}

	if err := s.DB.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}

	if a.Status == StatusScheduled {
		s.syncReminder(a)
	}
	return a, nil
}

// UpdateStatus moves an appointment between scheduled, completed and
// cancelled, keeping the reminder job in step.
func (s *Service) UpdateStatus(ctx context.Context, userID, id uint64, status string) (*Appointment, error) {
	switch status {
	case StatusScheduled, StatusCompleted, StatusCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	a.Status = status
	if err := s.DB.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}

	s.syncReminder(a)
	return a, nil
}

// Approve confirms a pending public booking request.
func (s *Service) Approve(ctx context.Context, userID, id uint64) (*Appointment, error) {
	return s.transition(ctx, userID, id, StatusPending, StatusScheduled)
}

func (s *Service) Reject(ctx context.Context, userID, id uint64) (*Appointment, error) {
	return s.transition(ctx, userID, id, StatusPending, StatusRejected)
}

func (s *Service) transition(ctx context.Context, userID, id uint64, from, to string) (*Appointment, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != from {
		return nil, ErrInvalidStatus
	}

	a.Status = to
	if err := s.DB.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}

	s.syncReminder(a)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uint64) error {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.Scheduler.Cancel(a.ID); err != nil {
		log.Errorf("failed to remove reminder for appointment %d: %v", a.ID, err)
	}
	return s.DB.WithContext(ctx).Delete(a).Error
}

type PublicBookingInput struct {
	Name  string `validate:"required,min=3,max=100"`
	Phone string `validate:"required,min=8,max=20"`
	Email string `validate:"omitempty,email"`
	Date  string `validate:"required,datetime=2006-01-02"`
	Time  string `validate:"required,datetime=15:04"`
	Note  string
}

// PublicBook creates a pending appointment request through a practitioner's
// booking link. No reminder is scheduled until the request is approved.
func (s *Service) PublicBook(ctx context.Context, bookingLink string, in PublicBookingInput) (*Appointment, error) {
	if err := s.Validate.Struct(in); err != nil {
		return nil, err
	}

	var u auth.User
	err := s.DB.WithContext(ctx).Where("booking_link = ?", bookingLink).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if in.Date < time.Now().Format(DateLayout) {
		return nil, ErrPastDate
	}
	day, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return nil, err
	}
	if !u.WorksOn(day.Weekday()) {
		return nil, ErrDayOff
	}
	if err := s.checkDayFree(ctx, u.ID, in.Date); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, u.ID, in.Date, in.Time, 60, 0); err != nil {
		return nil, err
	}

	c, err := s.findOrCreateClient(ctx, u.ID, in.Name, in.Phone, in.Email)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		UserID:      u.ID,
		ClientID:    &c.ID,
		Title:       in.Name + " - Online Randevu",
		Description: in.Note,
		Date:        in.Date,
		Time:        in.Time,
		Duration:    60,
		Status:      StatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) findOrCreateClient(ctx context.Context, userID uint64, name, phone, email string) (*client.Client, error) {
	var c client.Client
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND phone = ?", userID, phone).
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = client.Client{UserID: userID, Name: name, Phone: phone, Email: email, IsActive: true}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) BlockDay(ctx context.Context, userID uint64, date, reason string) (*BlockedDay, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}
	b := &BlockedDay{UserID: userID, Date: date, Reason: reason}
	if err := s.DB.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBlockedDays(ctx context.Context, userID uint64) ([]BlockedDay, error) {
	var rows []BlockedDay
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date asc").
		Find(&rows).Error
	return rows, err
}

func (s *Service) UnblockDay(ctx context.Context, userID, id uint64) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&BlockedDay{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// syncReminder brings the reminder job in line with the appointment's current
// state. Scheduling failures are logged and swallowed: the appointment
// mutation has already committed and must not depend on the job store.
func (s *Service) syncReminder(a *Appointment) {
	if a.Status != StatusScheduled {
		if err := s.Scheduler.Cancel(a.ID); err != nil {
			log.Errorf("failed to remove reminder for appointment %d: %v", a.ID, err)
		}
		return
	}

	start, err := a.StartsAt()
	if err != nil {
		log.Errorf("appointment %d has unparseable start: %v", a.ID, err)
		return
	}

	fireAt := start.Add(-s.Lead)
	if !fireAt.After(time.Now()) {
		// Too late for a reminder; drop any stale job.
		if err := s.Scheduler.Cancel(a.ID); err != nil {
			log.Errorf("failed to remove reminder for appointment %d: %v", a.ID, err)
		}
		return
	}

	if err := s.Scheduler.Schedule(a.ID, fireAt); err != nil {
		log.Errorf("failed to schedule reminder for appointment %d: %v", a.ID, err)
	}
}

func (s *Service) checkDayFree(ctx context.Context, userID uint64, date string) error {
	var n int64
	err := s.DB.WithContext(ctx).Model(&BlockedDay{}).
		Where("user_id = ? AND date = ?", userID, date).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrBlockedDay
	}
	return nil
}

// checkOverlap rejects a slot that intersects any non-cancelled appointment
// of the same practitioner on the same day.
func (s *Service) checkOverlap(ctx context.Context, userID uint64, date, timeOfDay string, duration int, excludeID uint64) error {
	newStart, err := minutesOfDay(timeOfDay)
	if err != nil {
		return err
	}
	newEnd := newStart + duration

	q := s.DB.WithContext(ctx).
		Where("user_id = ? AND date = ? AND status <> ?", userID, date, StatusCancelled)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var existing []Appointment
	if err := q.Find(&existing).Error; err != nil {
		return err
	}

	for _, e := range existing {
		start, err := minutesOfDay(e.Time)
		if err != nil {
			continue
		}
		end := start + e.Duration
		if newStart < end && newEnd > start {
			return ErrConflict
		}
	}
	return nil
}

func minutesOfDay(timeOfDay string) (int, error) {
	t, err := time.Parse(TimeLayout, timeOfDay)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
