package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"randevu/internal/auth"
	"randevu/internal/reminder"
	"randevu/internal/sms"

	"gorm.io/gorm"
)

type SmsLogHandler struct {
	DB *gorm.DB
}

func (h *SmsLogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := sms.Recent(h.DB, uid, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (h *SmsLogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	s, err := sms.StatsFor(h.DB, uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s)
}

// JobsHandler exposes the pending reminder jobs for operational inspection.
// Practitioners see their own jobs; admins see everyone's.
type JobsHandler struct {
	Sched *reminder.Scheduler
}

type jobDTO struct {
	AppointmentID uint64    `json:"appointment_id"`
	RunAt         time.Time `json:"run_at"`
	Status        string    `json:"status"`
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var jobs []reminder.Job
	var err error
	if auth.IsAdminFromContext(r.Context()) {
		jobs, err = h.Sched.ListJobs()
	} else {
		jobs, err = h.Sched.ListJobsFor(uid)
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobDTO{AppointmentID: j.AppointmentID, RunAt: j.RunAt, Status: j.Status})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
