package appointment

import "time"

const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID       uint64  `gorm:"primaryKey"`
	UserID   uint64  `gorm:"index;not null"`
	ClientID *uint64 `gorm:"index"`

	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`

	// Date is YYYY-MM-DD, Time is HH:MM. ISO date strings compare correctly
	// in SQL, which the resync scan relies on.
	Date string `gorm:"index;not null"`
	Time string `gorm:"not null"`

	// Duration in minutes.
	Duration int    `gorm:"not null;default:60"`
	Status   string `gorm:"index;not null;default:'pending'"`

	Location string
	Notes    string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// StartsAt combines date and time into an absolute instant in local time.
func (a *Appointment) StartsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, time.Local)
}

func (a *Appointment) EndsAt() (time.Time, error) {
	start, err := a.StartsAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.Duration) * time.Minute), nil
}

// FormattedDate renders the date as dd.mm.yyyy for SMS messages.
func (a *Appointment) FormattedDate() string {
	t, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return a.Date
	}
	return t.Format("02.01.2006")
}

type BlockedDay struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	// Date is YYYY-MM-DD.
	Date   string `gorm:"not null"`
	Reason string

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
