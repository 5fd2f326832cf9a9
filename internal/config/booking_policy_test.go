package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking_policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBookingPolicy_FullFile(t *testing.T) {
	path := writePolicyFile(t, `
business_start: "08:30"
business_end: "18:00"
max_advance_days: 14
excluded_weekdays:
  - Sunday
blackout_dates:
  - "2025-12-25"
  - "2026-01-01"
slot_minutes: 20
buffer_minutes: 5
`)

	policy, err := LoadBookingPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := policy.AvailabilityConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BusinessStart != 8*60+30 || cfg.BusinessEnd != 18*60 {
		t.Errorf("bad business hours: %d-%d", cfg.BusinessStart, cfg.BusinessEnd)
	}
	if cfg.MaxAdvanceDays != 14 {
		t.Errorf("bad advance window: %d", cfg.MaxAdvanceDays)
	}
	if !cfg.ExcludedWeekdays[time.Sunday] || cfg.ExcludedWeekdays[time.Saturday] {
		t.Errorf("bad excluded weekdays: %v", cfg.ExcludedWeekdays)
	}
	if !cfg.BlackoutDates["2025-12-25"] || !cfg.BlackoutDates["2026-01-01"] {
		t.Errorf("bad blackout dates: %v", cfg.BlackoutDates)
	}
	if cfg.SlotMinutes != 20 || cfg.BufferMinutes != 5 {
		t.Errorf("bad slot geometry: %d/%d", cfg.SlotMinutes, cfg.BufferMinutes)
	}
}

func TestLoadBookingPolicy_MissingFileUsesDefaults(t *testing.T) {
	policy, err := LoadBookingPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := policy.AvailabilityConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BusinessStart != 9*60 || cfg.BusinessEnd != 17*60 {
		t.Errorf("default business hours wrong: %d-%d", cfg.BusinessStart, cfg.BusinessEnd)
	}
	if !cfg.ExcludedWeekdays[time.Saturday] || !cfg.ExcludedWeekdays[time.Sunday] {
		t.Errorf("weekend should be excluded by default: %v", cfg.ExcludedWeekdays)
	}
}

func TestBookingPolicy_BadValuesRejected(t *testing.T) {
	cases := []struct {
		name   string
		policy BookingPolicy
	}{
		{"bad clock", BookingPolicy{BusinessStart: "25:99", BusinessEnd: "17:00"}},
		{"empty hours", BookingPolicy{BusinessStart: "17:00", BusinessEnd: "09:00"}},
		{"unknown weekday", BookingPolicy{BusinessStart: "09:00", BusinessEnd: "17:00", ExcludedWeekdays: []string{"caturday"}}},
		{"bad blackout date", BookingPolicy{BusinessStart: "09:00", BusinessEnd: "17:00", BlackoutDates: []string{"25-12-2025"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.policy.AvailabilityConfig(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
