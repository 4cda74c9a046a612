package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"randevu/internal/appointment"
	"randevu/internal/auth"
	"randevu/internal/config"
	"randevu/internal/db"
	httpx "randevu/internal/http"
	"randevu/internal/metrics"
	"randevu/internal/reminder"
	"randevu/internal/sms"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// Sender is picked once at startup, never per send.
	var sender sms.Sender
	if cfg.SMSAPIKey != "" {
		sender = sms.NewProviderSender(cfg.SMSAPIKey, cfg.SMSAPIURL, cfg.SMSSenderName)
	} else {
		log.Println("SMS_API_KEY not set, using mock sender")
		sender = &sms.MockSender{}
	}

	sched := reminder.NewScheduler(gdb, collector, cfg.ReminderLead)
	exec := reminder.NewExecutor(gdb, sender, collector)
	pool := reminder.NewPool(sched, exec, cfg.WorkerCount, cfg.WorkerPollInterval)

	// Repair jobs lost while the process was down before firing anything.
	if _, err := sched.ResyncAll(); err != nil {
		log.Printf("resync failed: %v\n", err)
	}

	apptSvc := appointment.NewService(gdb, sched, cfg.ReminderLead)
	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, apptSvc, sched, reg)

	ctx := context.Background()
	pool.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	// Waits for in-flight sends; a reminder is never abandoned mid-send.
	pool.Stop()
}
