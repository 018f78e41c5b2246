package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"interview-scheduler/internal/schedule"
)

// Config is the process configuration, read from the environment with an
// optional YAML capacity file layered on top.
type Config struct {
	Port            string
	DatabaseURL     string
	DefaultResource string

	BatchSize         int
	SearchHorizonDays int
	RiskThreshold     float64
	RiskMinSample     int
	RiskWindowDays    int

	RiskRecomputeSpec string
	ReminderSweepSpec string

	CapacityFile string
	Capacity     schedule.CapacityConfig
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		DefaultResource:   getenv("SCHED_DEFAULT_RESOURCE", "primary"),
		BatchSize:         getenvInt("SCHED_BATCH_SIZE", 50),
		SearchHorizonDays: getenvInt("SCHED_SEARCH_HORIZON_DAYS", 14),
		RiskThreshold:     getenvFloat("SCHED_RISK_THRESHOLD", 0.20),
		RiskMinSample:     getenvInt("SCHED_RISK_MIN_SAMPLE", 5),
		RiskWindowDays:    getenvInt("SCHED_RISK_WINDOW_DAYS", 30),
		RiskRecomputeSpec: getenv("SCHED_RISK_RECOMPUTE_SPEC", "@every 6h"),
		ReminderSweepSpec: getenv("SCHED_REMINDER_SWEEP_SPEC", "@every 1m"),
		CapacityFile:      getenv("SCHED_CAPACITY_FILE", ""),
		Capacity:          schedule.DefaultCapacity(),
	}

	if cfg.CapacityFile != "" {
		capacity, err := LoadCapacity(cfg.CapacityFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Capacity = capacity
	}
	return cfg, nil
}

// LoadCapacity reads a CapacityConfig from a YAML file. Omitted fields keep
// their defaults.
func LoadCapacity(path string) (schedule.CapacityConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schedule.CapacityConfig{}, fmt.Errorf("read capacity file: %w", err)
	}
	capacity := schedule.DefaultCapacity()
	if err := yaml.Unmarshal(data, &capacity); err != nil {
		return schedule.CapacityConfig{}, fmt.Errorf("parse capacity file %s: %w", path, err)
	}
	if capacity.SlotDurationMinutes <= 0 {
		return schedule.CapacityConfig{}, fmt.Errorf("capacity file %s: slot_duration_minutes must be positive", path)
	}
	if capacity.MaxDailyBookings <= 0 || capacity.MaxWeeklyBookings <= 0 {
		return schedule.CapacityConfig{}, fmt.Errorf("capacity file %s: booking ceilings must be positive", path)
	}
	return capacity, nil
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
