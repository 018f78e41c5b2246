package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.BatchSize != 50 || cfg.SearchHorizonDays != 14 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Capacity.SlotDurationMinutes != 30 || cfg.Capacity.BufferMinutes != 15 {
		t.Fatalf("unexpected capacity defaults %+v", cfg.Capacity)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SCHED_BATCH_SIZE", "10")
	t.Setenv("SCHED_RISK_THRESHOLD", "0.35")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.BatchSize != 10 {
		t.Fatalf("expected batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.RiskThreshold != 0.35 {
		t.Fatalf("expected risk threshold 0.35, got %f", cfg.RiskThreshold)
	}
}

func TestGetenvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SCHED_SEARCH_HORIZON_DAYS", "two weeks")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.SearchHorizonDays != 14 {
		t.Fatalf("unparsable value must fall back, got %d", cfg.SearchHorizonDays)
	}
}

func TestLoadCapacityMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capacity.yaml")
	body := []byte("slot_duration_minutes: 45\nmax_daily_bookings: 4\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	capacity, err := LoadCapacity(path)
	if err != nil {
		t.Fatalf("load capacity: %v", err)
	}
	if capacity.SlotDurationMinutes != 45 || capacity.MaxDailyBookings != 4 {
		t.Fatalf("overrides not applied: %+v", capacity)
	}
	// Omitted fields keep the shipped defaults.
	if capacity.BufferMinutes != 15 || capacity.MaxWeeklyBookings != 40 {
		t.Fatalf("defaults lost: %+v", capacity)
	}
	if capacity.WorkingHours.Start != "08:00" {
		t.Fatalf("working hours default lost: %+v", capacity.WorkingHours)
	}
}

func TestLoadCapacityRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero slot duration", "slot_duration_minutes: 0\n"},
		{"negative daily ceiling", "max_daily_bookings: -1\n"},
		{"bad yaml", "slot_duration_minutes: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "capacity.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatalf("write file: %v", err)
			}
			if _, err := LoadCapacity(path); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadCapacityMissingFile(t *testing.T) {
	if _, err := LoadCapacity(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
