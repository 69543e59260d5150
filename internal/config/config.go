package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	RazorpayKeyID     string
	RazorpayKeySecret string
	StripeSecretKey   string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "rentalhub-backend"),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),

		RazorpayKeyID:     strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID")),
		RazorpayKeySecret: strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),
		StripeSecretKey:   strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),

		SMTPHost:  strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPUser:  strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: fallback(os.Getenv("EMAIL_FROM"), "no-reply@rentalhub.local"),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	port := fallback(os.Getenv("SMTP_PORT"), "587")
	if smtpPort, err := strconv.Atoi(port); err == nil && smtpPort > 0 {
		cfg.SMTPPort = smtpPort
	} else {
		cfg.SMTPPort = 587
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// PaymentDevMode reports whether settlement runs without real Razorpay
// credentials: missing or placeholder keys auto-accept signature checks. It
// can never be true once real credentials are configured.
func (c Config) PaymentDevMode() bool {
	return c.RazorpayKeyID == "" || strings.Contains(c.RazorpayKeyID, "...")
}

// SMTPConfigured reports whether outbound email can actually be sent.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
