package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "commerce-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "commerce-auth")
	}
	if cfg.JWTAudience != "commerce-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "commerce-api")
	}
	if cfg.SigningKeyBits != 2048 {
		t.Errorf("SigningKeyBits = %d, want 2048", cfg.SigningKeyBits)
	}
	if got := cfg.AccessTTL(); got != 168*time.Hour {
		t.Errorf("AccessTTL = %v, want 168h", got)
	}
	if got := cfg.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL = %v, want 720h", got)
	}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList = %v, want nil", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("GRPC_ADDR", ":9090")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", got)
	}
	if got := cfg.RefreshTTL(); got != 48*time.Hour {
		t.Errorf("RefreshTTL = %v, want 48h", got)
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Errorf("KafkaBrokersList = %v", brokers)
	}
}

func TestLoad_RejectsWeakSigningKey(t *testing.T) {
	os.Clearenv()
	t.Setenv("SIGNING_KEY_BITS", "1024")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject SIGNING_KEY_BITS below 2048")
	}
}

func TestAccessTTL_InvalidFallsBack(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "not-a-duration"}
	if got := cfg.AccessTTL(); got != 168*time.Hour {
		t.Errorf("AccessTTL = %v, want 168h fallback", got)
	}
	cfg = &Config{RefreshTokenTTL: "-1h"}
	if got := cfg.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL = %v, want 720h fallback", got)
	}
}
