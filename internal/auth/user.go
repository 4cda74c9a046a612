package auth

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// User is a practitioner account. Clients booking through the public link
// never get an account of their own.
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	FirstName   string `gorm:"not null"`
	LastName    string `gorm:"not null"`
	Phone       string
	CompanyName string

	// BookingLink is the public slug clients use to request appointments.
	BookingLink string `gorm:"uniqueIndex;not null"`

	// WorkingDays holds lowercase weekday names shown on the public form.
	WorkingDays pq.StringArray `gorm:"type:text[];not null;default:'{}'"`

	SMSQuota int  `gorm:"not null;default:100"`
	IsAdmin  bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CompanyDisplayName is the client-facing name used in reminder messages.
func (u *User) CompanyDisplayName() string {
	if u.CompanyName != "" {
		return u.CompanyName
	}
	return u.FullName()
}

func (u *User) WorksOn(weekday time.Weekday) bool {
	if len(u.WorkingDays) == 0 {
		return true
	}
	name := strings.ToLower(weekday.String())
	for _, d := range u.WorkingDays {
		if strings.ToLower(strings.TrimSpace(d)) == name {
			return true
		}
	}
	return false
}
