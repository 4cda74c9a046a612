package reminder

import (
	"fmt"
	"time"

	"randevu/internal/appointment"
	"randevu/internal/metrics"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A claimed job whose worker died is handed back after this long.
const stuckAfter = 5 * time.Minute

// Scheduler owns the reminder job store. It is constructed once at startup
// and injected into the appointment lifecycle and the worker pool; there is
// no package-level instance.
type Scheduler struct {
	DB      *gorm.DB
	Metrics *metrics.Collector

	// Lead is how long before an appointment's start its reminder fires.
	Lead time.Duration
}

func NewScheduler(db *gorm.DB, m *metrics.Collector, lead time.Duration) *Scheduler {
	return &Scheduler{DB: db, Metrics: m, Lead: lead}
}

// Schedule replaces any job for the appointment with one firing at fireAt.
// Calling it twice leaves exactly one job, the most recent. Callers must
// only pass a future fireAt.
func (s *Scheduler) Schedule(appointmentID uint64, fireAt time.Time) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var a appointment.Appointment
		if err := tx.Select("user_id").Where("id = ?", appointmentID).First(&a).Error; err != nil {
			return fmt.Errorf("load appointment %d: %w", appointmentID, err)
		}

		if err := tx.Where("appointment_id = ?", appointmentID).Delete(&Job{}).Error; err != nil {
			return err
		}
		return tx.Create(&Job{
			AppointmentID: appointmentID,
			UserID:        a.UserID,
			RunAt:         fireAt,
			Status:        JobPending,
		}).Error
	})
	if err != nil {
		log.Errorf("failed to schedule reminder for appointment %d: %v", appointmentID, err)
		return err
	}

	if s.Metrics != nil {
		s.Metrics.JobScheduled()
	}
	log.Infof("scheduled reminder for appointment %d at %s", appointmentID, fireAt.Format(time.RFC3339))
	return nil
}

// Reschedule is Schedule: removal of the old job is unconditional either way.
func (s *Scheduler) Reschedule(appointmentID uint64, fireAt time.Time) error {
	return s.Schedule(appointmentID, fireAt)
}

// Cancel removes the appointment's job if one exists. A missing job is not
// an error. A job already claimed by a worker keeps executing; the
// executor's status re-check makes that firing a no-op.
func (s *Scheduler) Cancel(appointmentID uint64) error {
	res := s.DB.Where("appointment_id = ?", appointmentID).Delete(&Job{})
	if res.Error != nil {
		log.Errorf("failed to remove reminder for appointment %d: %v", appointmentID, res.Error)
		return res.Error
	}
	if res.RowsAffected > 0 {
		if s.Metrics != nil {
			s.Metrics.JobCancelled()
		}
		log.Infof("removed reminder for appointment %d", appointmentID)
	}
	return nil
}

// ResyncAll re-derives the job set from the appointment table: every
// appointment still scheduled, dated today or later, whose reminder instant
// has not passed, gets a job. Run at startup to repair jobs lost to crashes
// or data imported out-of-band. Appointments whose reminder instant already
// passed are left alone; a missed reminder is not sent late.
func (s *Scheduler) ResyncAll() (int, error) {
	today := time.Now().Format(appointment.DateLayout)

	var appts []appointment.Appointment
	err := s.DB.
		Where("status = ? AND date >= ?", appointment.StatusScheduled, today).
		Find(&appts).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	count := 0
	for _, a := range appts {
		start, err := a.StartsAt()
		if err != nil {
			log.Warnf("appointment %d has unparseable start, skipping: %v", a.ID, err)
			continue
		}
		fireAt := start.Add(-s.Lead)
		if !fireAt.After(now) {
			continue
		}
		if err := s.Schedule(a.ID, fireAt); err != nil {
			return count, err
		}
		count++
	}

	log.Infof("resync scheduled %d appointment reminders", count)
	return count, nil
}

// ListJobs returns the current job set ordered by fire time.
func (s *Scheduler) ListJobs() ([]Job, error) {
	var jobs []Job
	err := s.DB.Order("run_at asc").Find(&jobs).Error
	return jobs, err
}

// ListJobsFor returns one practitioner's jobs ordered by fire time.
func (s *Scheduler) ListJobsFor(userID uint64) ([]Job, error) {
	var jobs []Job
	err := s.DB.Where("user_id = ?", userID).Order("run_at asc").Find(&jobs).Error
	return jobs, err
}

// Claim hands one due job to the given worker, or nil when nothing is due.
// Stuck RUNNING rows from dead workers are handed back first. On Postgres
// the row is locked with SKIP LOCKED so two workers never claim the same
// job.
func (s *Scheduler) Claim(workerID string, now time.Time) (*Job, error) {
	var claimed *Job
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Job{}).
			Where("status = ? AND locked_at < ?", JobRunning, now.Add(-stuckAfter)).
			Updates(map[string]any{"status": JobPending, "locked_by": nil, "locked_at": nil}).Error; err != nil {
			return err
		}

		q := tx.Where("status = ? AND run_at <= ?", JobPending, now).Order("run_at asc").Limit(1)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var jobs []Job
		if err := q.Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		job := jobs[0]

		res := tx.Model(&Job{}).
			Where("appointment_id = ? AND status = ?", job.AppointmentID, JobPending).
			Updates(map[string]any{"status": JobRunning, "locked_by": workerID, "locked_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to another worker.
			return nil
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Finish drops a job the worker has executed. The locked_by guard means a
// reschedule that landed mid-flight keeps its fresh job.
func (s *Scheduler) Finish(appointmentID uint64, workerID string) error {
	return s.DB.
		Where("appointment_id = ? AND status = ? AND locked_by = ?", appointmentID, JobRunning, workerID).
		Delete(&Job{}).Error
}
