package sms

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Log is the append-only audit record of every reminder attempt. Rows are
// never updated or deleted.
type Log struct {
	ID       uint64  `gorm:"primaryKey"`
	UserID   uint64  `gorm:"index;not null"`
	ClientID *uint64 `gorm:"index"`

	Message      string    `gorm:"type:text;not null"`
	Timestamp    time.Time `gorm:"index;not null"`
	Status       string    `gorm:"not null;default:'pending'"`
	ErrorMessage string    `gorm:"type:text"`
	Provider     string
	Cost         float64 `gorm:"not null;default:0"`
}

func (Log) TableName() string { return "sms_logs" }

type Stats struct {
	Total      int64   `json:"total"`
	Successful int64   `json:"successful"`
	Failed     int64   `json:"failed"`
	Pending    int64   `json:"pending"`
	TotalCost  float64 `json:"total_cost"`
}

func Recent(db *gorm.DB, userID uint64, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []Log
	err := db.Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func StatsFor(db *gorm.DB, userID uint64) (Stats, error) {
	var s Stats
	base := func() *gorm.DB { return db.Model(&Log{}).Where("user_id = ?", userID) }

	if err := base().Count(&s.Total).Error; err != nil {
		return s, err
	}
	if err := base().Where("status in ?", []string{StatusSent, StatusDelivered}).Count(&s.Successful).Error; err != nil {
		return s, err
	}
	if err := base().Where("status = ?", StatusFailed).Count(&s.Failed).Error; err != nil {
		return s, err
	}
	if err := base().Where("status = ?", StatusPending).Count(&s.Pending).Error; err != nil {
		return s, err
	}
	if err := base().Select("coalesce(sum(cost), 0)").Scan(&s.TotalCost).Error; err != nil {
		return s, err
	}
	return s, nil
}

// UsedThisMonth counts reminder attempts since the first of the current
// month, for quota reporting.
func UsedThisMonth(db *gorm.DB, userID uint64, now time.Time) (int64, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var n int64
	err := db.Model(&Log{}).
		Where("user_id = ? AND timestamp >= ?", userID, monthStart).
		Count(&n).Error
	return n, err
}
