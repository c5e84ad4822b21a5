package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr == "" {
		t.Fatalf("expected HTTPAddr default")
	}
	if cfg.Timezone != "Asia/Shanghai" {
		t.Fatalf("expected default timezone, got %q", cfg.Timezone)
	}
	if cfg.QRTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m token TTL, got %v", cfg.QRTokenTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CANTEEN_TZ", "UTC")
	t.Setenv("QR_TOKEN_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092 ,")

	cfg := Load()
	if cfg.Timezone != "UTC" {
		t.Fatalf("timezone override not applied: %q", cfg.Timezone)
	}
	if cfg.QRTokenTTL != 90*time.Second {
		t.Fatalf("TTL override not applied: %v", cfg.QRTokenTTL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b2:9092" {
		t.Fatalf("broker list parsed wrong: %#v", cfg.KafkaBrokers)
	}
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("CANCEL_CUTOFF", "not-a-duration")
	cfg := Load()
	if cfg.CancelCutoff != 2*time.Hour {
		t.Fatalf("expected default cutoff, got %v", cfg.CancelCutoff)
	}
}
