package reminder

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"randevu/internal/appointment"
	"randevu/internal/auth"
	"randevu/internal/client"
	"randevu/internal/sms"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Shared cache keeps every pooled connection on the same in-memory DB.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = gdb.AutoMigrate(
		&auth.User{},
		&client.Client{},
		&appointment.Appointment{},
		&sms.Log{},
		&Job{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, phone string) *auth.User {
	t.Helper()
	u := &auth.User{
		Email:        fmt.Sprintf("%s@example.com", strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))),
		PasswordHash: "x",
		FirstName:    "Ayşe",
		LastName:     "Yılmaz",
		Phone:        phone,
		CompanyName:  "Stüdyo Yılmaz",
		BookingLink:  t.Name(),
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedAppointment(t *testing.T, gdb *gorm.DB, userID uint64, start time.Time, status string) *appointment.Appointment {
	t.Helper()
	a := &appointment.Appointment{
		UserID:   userID,
		Title:    "Pilates Dersi",
		Date:     start.Format(appointment.DateLayout),
		Time:     start.Format(appointment.TimeLayout),
		Duration: 60,
		Status:   status,
	}
	if err := gdb.Create(a).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func jobCount(t *testing.T, gdb *gorm.DB, appointmentID uint64) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(&Job{})
	if appointmentID != 0 {
		q = q.Where("appointment_id = ?", appointmentID)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	return n
}
