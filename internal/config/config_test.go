package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.DBName != "careerdesk" {
		t.Errorf("DBName = %q, want careerdesk", cfg.DBName)
	}
	if cfg.Verification.CodeTTL != 10*time.Minute {
		t.Errorf("CodeTTL = %v, want 10m", cfg.Verification.CodeTTL)
	}
	if cfg.Verification.ResendCooldown != 30*time.Second {
		t.Errorf("ResendCooldown = %v, want 30s", cfg.Verification.ResendCooldown)
	}
	if cfg.Verification.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Verification.MaxAttempts)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = false, want true")
	}
	if cfg.HasSMTP() || cfg.HasSMSGateway() || cfg.HasRedis() {
		t.Error("optional channels reported configured with empty env")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without JWT_SECRET")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("VERIFICATION_CODE_TTL", "2m")
	t.Setenv("VERIFICATION_MAX_ATTEMPTS", "3")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.Verification.CodeTTL != 2*time.Minute {
		t.Errorf("CodeTTL = %v, want 2m", cfg.Verification.CodeTTL)
	}
	if cfg.Verification.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Verification.MaxAttempts)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
	if !cfg.HasSMTP() {
		t.Error("HasSMTP() = false with host and from set")
	}
	if !cfg.HasRedis() {
		t.Error("HasRedis() = false with addr set")
	}
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("VERIFICATION_CODE_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want default 8080", cfg.ServerPort)
	}
	if cfg.Verification.CodeTTL != 10*time.Minute {
		t.Errorf("CodeTTL = %v, want default 10m", cfg.Verification.CodeTTL)
	}
}
