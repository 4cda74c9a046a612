package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"randevu/internal/client"
	"randevu/internal/sms"

	"gorm.io/gorm"
)

func logEntries(t *testing.T, gdb *gorm.DB) []sms.Log {
	t.Helper()
	var rows []sms.Log
	if err := gdb.Order("id asc").Find(&rows).Error; err != nil {
		t.Fatalf("load sms logs: %v", err)
	}
	return rows
}

func TestExecutorSendsAndLogs(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	if sender.Count() != 1 {
		t.Fatalf("sender invoked %d times, want 1", sender.Count())
	}

	logs := logEntries(t, gdb)
	if len(logs) != 1 {
		t.Fatalf("sms log count = %d, want 1", len(logs))
	}
	entry := logs[0]
	if entry.Status != sms.StatusSent {
		t.Errorf("status = %s, want sent", entry.Status)
	}
	if entry.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", entry.UserID, u.ID)
	}
	if !strings.Contains(entry.Message, "Pilates Dersi") {
		t.Errorf("message does not mention the appointment title: %q", entry.Message)
	}
	if !strings.Contains(entry.Message, "Stüdyo Yılmaz") {
		t.Errorf("message does not mention the company name: %q", entry.Message)
	}
}

func TestExecutorPrefersClientPhone(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")

	c := &client.Client{UserID: u.ID, Name: "Mehmet", Phone: "05559876543", IsActive: true}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}

	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")
	if err := gdb.Model(a).Update("client_id", c.ID).Error; err != nil {
		t.Fatalf("link client: %v", err)
	}

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	if sender.Count() != 1 {
		t.Fatalf("sender invoked %d times, want 1", sender.Count())
	}
	if got := sender.Sent[0].Phone; got != c.Phone {
		t.Errorf("sent to %s, want client phone %s", got, c.Phone)
	}

	logs := logEntries(t, gdb)
	if len(logs) != 1 || logs[0].ClientID == nil || *logs[0].ClientID != c.ID {
		t.Errorf("log entry not attributed to client: %+v", logs)
	}
}

func TestExecutorStaleStatusIsNoop(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "cancelled")

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	if sender.Count() != 0 {
		t.Fatalf("sender invoked for a stale firing")
	}
	if logs := logEntries(t, gdb); len(logs) != 0 {
		t.Fatalf("stale firing wrote %d log entries, want 0", len(logs))
	}
}

func TestExecutorDeletedAppointmentIsNoop(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), 424242, u.ID)

	if sender.Count() != 0 {
		t.Fatalf("sender invoked for a deleted appointment")
	}
	if logs := logEntries(t, gdb); len(logs) != 0 {
		t.Fatalf("deleted appointment wrote %d log entries, want 0", len(logs))
	}
}

func TestExecutorNoPhoneLogsFailure(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	if sender.Count() != 0 {
		t.Fatalf("sender must not be invoked without a phone number")
	}

	logs := logEntries(t, gdb)
	if len(logs) != 1 {
		t.Fatalf("sms log count = %d, want 1", len(logs))
	}
	if logs[0].Status != sms.StatusFailed {
		t.Errorf("status = %s, want failed", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "No phone number") {
		t.Errorf("error message = %q", logs[0].ErrorMessage)
	}
}

func TestExecutorSenderFailureLogsFailure(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	sender := &sms.MockSender{FailWith: "gateway timeout"}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	logs := logEntries(t, gdb)
	if len(logs) != 1 {
		t.Fatalf("sms log count = %d, want 1", len(logs))
	}
	if logs[0].Status != sms.StatusFailed {
		t.Errorf("status = %s, want failed", logs[0].Status)
	}
	if logs[0].ErrorMessage != "gateway timeout" {
		t.Errorf("error message = %q, want provider diagnostic", logs[0].ErrorMessage)
	}
}

type panicSender struct{}

func (panicSender) Send(context.Context, string, string) sms.Result {
	panic("boom")
}

func TestExecutorPanicBecomesFailedLogEntry(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	exec := NewExecutor(gdb, panicSender{}, nil)
	exec.Execute(context.Background(), a.ID, u.ID)

	logs := logEntries(t, gdb)
	if len(logs) != 1 {
		t.Fatalf("sms log count = %d, want 1", len(logs))
	}
	if logs[0].Status != sms.StatusFailed {
		t.Errorf("status = %s, want failed", logs[0].Status)
	}
	if !strings.Contains(logs[0].ErrorMessage, "boom") {
		t.Errorf("error message = %q, want the panic text", logs[0].ErrorMessage)
	}
}

func TestExecutorMissingUserLogsFailure(t *testing.T) {
	gdb := newTestDB(t)

	// Owner row is gone but the appointment survived. The firing must still
	// leave an audit record attributed to the job's owner.
	a := seedAppointment(t, gdb, 9001, time.Now().Add(30*time.Hour), "scheduled")

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	exec.Execute(context.Background(), a.ID, 9001)

	if sender.Count() != 0 {
		t.Fatalf("sender must not be invoked without a user")
	}

	logs := logEntries(t, gdb)
	if len(logs) != 1 {
		t.Fatalf("sms log count = %d, want 1", len(logs))
	}
	if logs[0].Status != sms.StatusFailed {
		t.Errorf("status = %s, want failed", logs[0].Status)
	}
	if logs[0].UserID != 9001 {
		t.Errorf("user_id = %d, want 9001", logs[0].UserID)
	}
	if logs[0].ErrorMessage == "" {
		t.Error("expected a diagnostic error message")
	}
}

func TestClaimExecuteFinishRoundTrip(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	sched := NewScheduler(gdb, nil, 24*time.Hour)
	if err := sched.Schedule(a.ID, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	sender := &sms.MockSender{}
	exec := NewExecutor(gdb, sender, nil)
	pool := NewPool(sched, exec, 1, time.Millisecond)

	job, err := sched.Claim("worker-1", time.Now())
	if err != nil || job == nil {
		t.Fatalf("claim: %v %+v", err, job)
	}
	pool.execute(context.Background(), job, "worker-1")

	if sender.Count() != 1 {
		t.Fatalf("sender invoked %d times, want 1", sender.Count())
	}
	if got := jobCount(t, gdb, a.ID); got != 0 {
		t.Fatalf("job count after execution = %d, want 0", got)
	}
	if logs := logEntries(t, gdb); len(logs) != 1 || logs[0].Status != sms.StatusSent {
		t.Fatalf("unexpected log entries: %+v", logs)
	}
}

func TestPoolStartStopDrains(t *testing.T) {
	gdb := newTestDB(t)
	u := seedUser(t, gdb, "05321234567")
	a := seedAppointment(t, gdb, u.ID, time.Now().Add(30*time.Hour), "scheduled")

	sched := NewScheduler(gdb, nil, 24*time.Hour)
	if err := sched.Schedule(a.ID, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	sender := &sms.MockSender{}
	pool := NewPool(sched, NewExecutor(gdb, sender, nil), 2, 5*time.Millisecond)
	pool.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sender.Count() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	pool.Stop()

	if sender.Count() != 1 {
		t.Fatalf("sender invoked %d times, want 1", sender.Count())
	}
	if got := jobCount(t, gdb, a.ID); got != 0 {
		t.Fatalf("job count = %d, want 0", got)
	}
}
