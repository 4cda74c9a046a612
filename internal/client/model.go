package client

import "time"

// Client is an entry in a practitioner's address book. Reminder delivery
// prefers the client's phone over the practitioner's.
type Client struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Name  string `gorm:"not null"`
	Phone string `gorm:"not null"`
	Email string
	Notes string

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
