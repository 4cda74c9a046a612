package http

import (
	"net/http"

	"randevu/internal/appointment"
	"randevu/internal/auth"
	"randevu/internal/config"
	"randevu/internal/http/handler"
	mw "randevu/internal/http/middleware"
	"randevu/internal/metrics"
	"randevu/internal/reminder"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

func NewRouter(
	cfg config.Config,
	db *gorm.DB,
	jwtSvc *auth.JWT,
	apptSvc *appointment.Service,
	sched *reminder.Scheduler,
	reg *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	pub := &handler.PublicHandler{DB: db, Svc: apptSvc}
	r.Route("/book/{link}", func(r chi.Router) {
		r.Get("/", pub.Info)
		r.Post("/", pub.Book)
	})

	apptH := &handler.AppointmentHandler{Svc: apptSvc}
	r.Route("/appointments", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", apptH.Create)
		r.Get("/", apptH.List)
		r.Get("/{id}", apptH.Get)
		r.Put("/{id}", apptH.Update)
		r.Delete("/{id}", apptH.Delete)
		r.Post("/{id}/status", apptH.UpdateStatus)
		r.Post("/{id}/approve", apptH.Approve)
		r.Post("/{id}/reject", apptH.Reject)
	})

	clientH := &handler.ClientHandler{DB: db}
	r.Route("/clients", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))
		r.Post("/", clientH.Create)
		r.Get("/", clientH.List)
	})

	blockedH := &handler.BlockedDayHandler{Svc: apptSvc}
	r.Route("/blocked-days", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))
		r.Post("/", blockedH.Create)
		r.Get("/", blockedH.List)
		r.Delete("/{id}", blockedH.Delete)
	})

	smsH := &handler.SmsLogHandler{DB: db}
	r.Route("/sms-logs", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))
		r.Get("/", smsH.Recent)
		r.Get("/stats", smsH.Stats)
	})

	jobsH := &handler.JobsHandler{Sched: sched}
	r.With(auth.RequireAuth(jwtSvc)).Get("/jobs", jobsH.List)

	return r
}
