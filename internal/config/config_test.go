package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "JWT_TTL", "BOOKING_LOCK_TTL", "CORS_ALLOWED_ORIGINS", "USE_MEMORY_QUEUE", "ADVISORY_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected default jwt ttl, got %s", cfg.JWTTTL)
	}
	if cfg.BookingLockTTL != 5*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.BookingLockTTL)
	}
	if cfg.AdvisoryTimeout != 20*time.Second {
		t.Fatalf("expected default advisory timeout, got %s", cfg.AdvisoryTimeout)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue by default")
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.UploadMaxBytes != 10<<20 {
		t.Fatalf("expected 10MiB upload limit, got %d", cfg.UploadMaxBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://novacare247.com, ,https://admin.novacare247.com")
	t.Setenv("PUBLIC_RATE_LIMIT", "2.5")
	t.Setenv("NOTIFY_WORKER_COUNT", "4")
	t.Setenv("ADVISORY_TIMEOUT", "12s")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.novacare247.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PublicRateLimit != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.PublicRateLimit)
	}
	if cfg.NotifyWorkerCount != 4 {
		t.Fatalf("expected worker override, got %d", cfg.NotifyWorkerCount)
	}
	if cfg.AdvisoryTimeout != 12*time.Second {
		t.Fatalf("expected advisory override, got %s", cfg.AdvisoryTimeout)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_TTL", "forever")
	t.Setenv("PUBLIC_RATE_BURST", "lots")
	cfg := Load()
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected fallback ttl, got %s", cfg.JWTTTL)
	}
	if cfg.PublicRateBurst != 20 {
		t.Fatalf("expected fallback burst, got %d", cfg.PublicRateBurst)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{ClinicTimezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	cfg.ClinicTimezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}
