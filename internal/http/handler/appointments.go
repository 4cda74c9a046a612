package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"randevu/internal/appointment"
	"randevu/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type AppointmentHandler struct {
	Svc *appointment.Service
}

type appointmentDTO struct {
	ID       uint64  `json:"id"`
	UserID   uint64  `json:"user_id"`
	ClientID *uint64 `json:"client_id"`
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Duration int     `json:"duration"`
	Status   string  `json:"status"`
	Location string  `json:"location,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

func toDTO(a *appointment.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:       a.ID,
		UserID:   a.UserID,
		ClientID: a.ClientID,
		Title:    a.Title,
		Date:     a.Date,
		Time:     a.Time,
		Duration: a.Duration,
		Status:   a.Status,
		Location: a.Location,
		Notes:    a.Notes,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		http.Error(w, "invalid input: "+verr.Error(), http.StatusBadRequest)
	case errors.Is(err, appointment.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, appointment.ErrConflict):
		http.Error(w, "time slot not available", http.StatusConflict)
	case errors.Is(err, appointment.ErrBlockedDay):
		http.Error(w, "day is blocked", http.StatusConflict)
	case errors.Is(err, appointment.ErrDayOff):
		http.Error(w, "not a working day", http.StatusConflict)
	case errors.Is(err, appointment.ErrPastDate):
		http.Error(w, "date is in the past", http.StatusBadRequest)
	case errors.Is(err, appointment.ErrInvalidStatus):
		http.Error(w, "invalid status", http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

type createAppointmentReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Duration    int     `json:"duration"`
	ClientID    *uint64 `json:"client_id"`
	Location    string  `json:"location"`
	Notes       string  `json:"notes"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createAppointmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	a, err := h.Svc.Create(r.Context(), uid, appointment.CreateInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
		Duration:    req.Duration,
		ClientID:    req.ClientID,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toDTO(a))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	from := strings.TrimSpace(r.URL.Query().Get("from"))

	rows, err := h.Svc.List(r.Context(), uid, status, from)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]appointmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	a, err := h.Svc.Get(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(a))
}

type updateAppointmentReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Duration    *int    `json:"duration"`
	ClientID    *uint64 `json:"client_id"`
	Location    *string `json:"location"`
	Notes       *string `json:"notes"`
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateAppointmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	a, err := h.Svc.Update(r.Context(), uid, id, appointment.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Duration:    req.Duration,
		ClientID:    req.ClientID,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(a))
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	a, err := h.Svc.UpdateStatus(r.Context(), uid, id, strings.TrimSpace(strings.ToLower(req.Status)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(a))
}

func (h *AppointmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Approve)
}

func (h *AppointmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Reject)
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id uint64) (*appointment.Appointment, error)) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	a, err := fn(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(a))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Delete(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}
