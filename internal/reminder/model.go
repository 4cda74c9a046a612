package reminder

import "time"

const (
	JobPending = "PENDING"
	JobRunning = "RUNNING"
)

// Job is a durable one-shot reminder, keyed by the appointment it belongs
// to. The primary key makes "at most one job per appointment" a schema
// invariant. Rows are deleted once executed or cancelled; the sms log is the
// audit trail, not this table.
type Job struct {
	AppointmentID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID        uint64 `gorm:"index;not null"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"`

	LockedBy *string
	LockedAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Job) TableName() string { return "reminder_jobs" }
