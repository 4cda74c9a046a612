package db

import (
	"fmt"

	"randevu/internal/appointment"
	"randevu/internal/auth"
	"randevu/internal/client"
	"randevu/internal/reminder"
	"randevu/internal/sms"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := Migrate(gdb); err != nil {
		return err
	}

	stmts := []string{
		`create unique index if not exists uq_blocked_days_user_date on blocked_days(user_id, date);`,
		`create index if not exists idx_appointments_user_date on appointments(user_id, date);`,
		`create index if not exists idx_appointments_resync on appointments(status, date);`,
		`create index if not exists idx_jobs_due on reminder_jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on reminder_jobs(status, locked_at);`,
		`create index if not exists idx_sms_logs_user_ts on sms_logs(user_id, timestamp desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

// Migrate creates the tables. Split from the raw index statements so tests
// can run it against sqlite.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&auth.User{},
		&client.Client{},
		&appointment.Appointment{},
		&appointment.BlockedDay{},
		&sms.Log{},
		&reminder.Job{},
	)
}
