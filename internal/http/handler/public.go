package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"randevu/internal/appointment"
	"randevu/internal/auth"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// PublicHandler serves the unauthenticated booking flow: clients request
// appointments through a practitioner's booking link, no account needed.
type PublicHandler struct {
	DB  *gorm.DB
	Svc *appointment.Service
}

func (h *PublicHandler) Info(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")

	var u auth.User
	if err := h.DB.Where("booking_link = ?", link).First(&u).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"company_name": u.CompanyDisplayName(),
		"working_days": []string(u.WorkingDays),
	})
}

type publicBookingReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Note  string `json:"note"`
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")

	var req publicBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	a, err := h.Svc.PublicBook(r.Context(), link, appointment.PublicBookingInput{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
		Email: strings.TrimSpace(req.Email),
		Date:  strings.TrimSpace(req.Date),
		Time:  strings.TrimSpace(req.Time),
		Note:  req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     a.ID,
		"status": a.Status,
	})
}
