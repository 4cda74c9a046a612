package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"randevu/internal/auth"
	"randevu/internal/client"

	"gorm.io/gorm"
)

type ClientHandler struct {
	DB *gorm.DB
}

type createClientReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createClientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if len(req.Name) < 3 || len(req.Phone) < 8 {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	c := client.Client{
		UserID:   uid,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    strings.TrimSpace(req.Email),
		Notes:    req.Notes,
		IsActive: true,
	}
	if err := h.DB.Create(&c).Error; err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": c.ID})
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	q := h.DB.Where("user_id = ? AND is_active = ?", uid, true)
	if search := strings.TrimSpace(r.URL.Query().Get("q")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
	}

	var rows []client.Client
	if err := q.Order("name asc").Find(&rows).Error; err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
