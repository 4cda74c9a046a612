package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"randevu/internal/appointment"
	"randevu/internal/auth"
	"randevu/internal/client"
	"randevu/internal/metrics"
	"randevu/internal/sms"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

// Executor performs the work of one fired reminder: re-validate the
// appointment, resolve the recipient, send, and write exactly one sms log
// row with the outcome.
type Executor struct {
	DB      *gorm.DB
	Sender  sms.Sender
	Metrics *metrics.Collector
}

func NewExecutor(db *gorm.DB, sender sms.Sender, m *metrics.Collector) *Executor {
	return &Executor{DB: db, Sender: sender, Metrics: m}
}

// Execute runs one fired reminder. userID is the job's owner, used to
// attribute the audit record when the appointment row itself cannot be
// loaded.
func (e *Executor) Execute(ctx context.Context, appointmentID, userID uint64) {
	var a appointment.Appointment
	err := e.DB.WithContext(ctx).Where("id = ?", appointmentID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted after the job fired. Expected, not an error.
		log.Debugf("appointment %d gone, dropping reminder", appointmentID)
		e.stale()
		return
	}
	if err != nil {
		log.Errorf("failed to load appointment %d: %v", appointmentID, err)
		e.writeLog(ctx, appointmentID, userID, nil, "Reminder failed", sms.Result{
			Status:       sms.StatusFailed,
			Provider:     "scheduler",
			ErrorMessage: err.Error(),
		})
		return
	}

	if a.Status != appointment.StatusScheduled {
		// Stale firing: the status flipped between scheduling and now.
		log.Infof("appointment %d is no longer scheduled, skipping reminder", appointmentID)
		e.stale()
		return
	}

	var u auth.User
	if err := e.DB.WithContext(ctx).Where("id = ?", a.UserID).First(&u).Error; err != nil {
		log.Errorf("user for appointment %d not found: %v", appointmentID, err)
		e.writeLog(ctx, appointmentID, a.UserID, a.ClientID, "Reminder failed: "+a.Title, sms.Result{
			Status:       sms.StatusFailed,
			Provider:     "scheduler",
			ErrorMessage: err.Error(),
		})
		return
	}

	var c *client.Client
	if a.ClientID != nil {
		var cc client.Client
		if err := e.DB.WithContext(ctx).Where("id = ?", *a.ClientID).First(&cc).Error; err == nil {
			c = &cc
		}
	}

	res, message := e.attempt(ctx, &a, &u, c)
	e.writeLog(ctx, appointmentID, u.ID, a.ClientID, message, res)
}

// writeLog is the single audit write: every firing that is not a stale drop
// lands here exactly once, whatever went wrong before it.
func (e *Executor) writeLog(ctx context.Context, appointmentID, userID uint64, clientID *uint64, message string, res sms.Result) {
	entry := sms.Log{
		UserID:       userID,
		ClientID:     clientID,
		Message:      message,
		Timestamp:    time.Now(),
		Status:       res.Status,
		ErrorMessage: res.ErrorMessage,
		Provider:     res.Provider,
		Cost:         res.Cost,
	}
	if err := e.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Errorf("failed to write sms log for appointment %d: %v", appointmentID, err)
	}

	if res.Status == sms.StatusSent {
		if e.Metrics != nil {
			e.Metrics.ReminderSent()
		}
		log.Infof("reminder sent for appointment %d", appointmentID)
	} else {
		if e.Metrics != nil {
			e.Metrics.ReminderFailed()
		}
		log.Warnf("reminder failed for appointment %d: %s", appointmentID, res.ErrorMessage)
	}
}

// attempt produces the delivery outcome. It never panics out: any panic in
// composing or sending becomes a failed Result, so Execute has a single
// unconditional log write.
func (e *Executor) attempt(ctx context.Context, a *appointment.Appointment, u *auth.User, c *client.Client) (res sms.Result, message string) {
	defer func() {
		if r := recover(); r != nil {
			res = sms.Result{
				Status:       sms.StatusFailed,
				Provider:     "scheduler",
				ErrorMessage: fmt.Sprintf("panic: %v", r),
			}
			if message == "" {
				message = "Reminder failed: " + a.Title
			}
		}
	}()

	phone := u.Phone
	if c != nil && c.Phone != "" {
		phone = c.Phone
	}
	if phone == "" {
		return sms.Result{
			Status:       sms.StatusFailed,
			Provider:     "sms_provider",
			ErrorMessage: "No phone number available for reminder",
		}, "Reminder failed: " + a.Title
	}

	message = sms.ComposeReminder(a.Title, a.FormattedDate(), a.Time, u.CompanyDisplayName())
	return e.Sender.Send(ctx, phone, message), message
}

func (e *Executor) stale() {
	if e.Metrics != nil {
		e.Metrics.JobStale()
	}
}

// Pool runs the claim loops. Each worker polls for due jobs and executes
// them one at a time, so WorkerCount bounds concurrent sends.
type Pool struct {
	Sched    *Scheduler
	Exec     *Executor
	Count    int
	Interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(sched *Scheduler, exec *Executor, count int, interval time.Duration) *Pool {
	if count <= 0 {
		count = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Pool{Sched: sched, Exec: exec, Count: count, Interval: interval}
}

// Start begins firing due and overdue jobs.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.Count; i++ {
		p.wg.Add(1)
		go p.run(ctx, fmt.Sprintf("worker-%d", i+1))
	}
	log.Infof("reminder pool started with %d workers", p.Count)
}

// Stop stops claiming new jobs and blocks until in-flight executions finish,
// so a send is never abandoned mid-flight at shutdown.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	log.Infof("reminder pool stopped")
}

func (p *Pool) run(ctx context.Context, workerID string) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx, workerID)
		}
	}
}

// drain claims jobs until nothing is due. Overdue jobs from downtime are
// executed here too, once each, their single row coalescing any missed
// fires.
func (p *Pool) drain(ctx context.Context, workerID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.Sched.Claim(workerID, time.Now())
		if err != nil {
			log.Errorf("%s claim error: %v", workerID, err)
			return
		}
		if job == nil {
			return
		}
		p.execute(ctx, job, workerID)
	}
}

func (p *Pool) execute(ctx context.Context, job *Job, workerID string) {
	// A panic here must not take the worker loop down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s: reminder for appointment %d panicked: %v", workerID, job.AppointmentID, r)
		}
	}()

	p.Exec.Execute(ctx, job.AppointmentID, job.UserID)
	if p.Exec.Metrics != nil {
		p.Exec.Metrics.JobExecuted()
	}

	if err := p.Sched.Finish(job.AppointmentID, workerID); err != nil {
		log.Errorf("%s: failed to finish job for appointment %d: %v", workerID, job.AppointmentID, err)
	}
}
