package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string
	JWTTTL    time.Duration

	// SMS provider. When SMSAPIKey is empty the mock sender is used.
	SMSAPIKey     string
	SMSAPIURL     string
	SMSSenderName string

	// Reminder scheduling.
	ReminderLead       time.Duration
	WorkerCount        int
	WorkerPollInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		SMSAPIKey:     getenv("SMS_API_KEY", ""),
		SMSAPIURL:     getenv("SMS_API_URL", "https://api.sms-provider.com/send"),
		SMSSenderName: getenv("SMS_SENDER_NAME", "Randevu Sistemi"),

		ReminderLead:       time.Duration(getenvInt("REMINDER_LEAD_HOURS", 24)) * time.Hour,
		WorkerCount:        getenvInt("WORKER_COUNT", 10),
		WorkerPollInterval: time.Duration(getenvInt("WORKER_POLL_MS", 1000)) * time.Millisecond,
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	cfg.JWTTTL = time.Duration(getenvInt("JWT_TTL_HOURS", 168)) * time.Hour
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
