package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"clinic-booking-server/internal/booking"
)

// BookingPolicy is the clinic-wide availability policy, loaded from a YAML
// file rather than the environment: blackout-date lists do not fit env vars.
type BookingPolicy struct {
	BusinessStart    string   `mapstructure:"business_start"` // "09:00"
	BusinessEnd      string   `mapstructure:"business_end"`   // "17:00"
	MaxAdvanceDays   int      `mapstructure:"max_advance_days"`
	ExcludedWeekdays []string `mapstructure:"excluded_weekdays"` // weekday names
	BlackoutDates    []string `mapstructure:"blackout_dates"`    // "2006-01-02"
	SlotMinutes      int      `mapstructure:"slot_minutes"`
	BufferMinutes    int      `mapstructure:"buffer_minutes"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadBookingPolicy reads the policy file. A missing file yields the
// defaults, so the server boots without one.
func LoadBookingPolicy(path string) (*BookingPolicy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("business_start", "09:00")
	v.SetDefault("business_end", "17:00")
	v.SetDefault("max_advance_days", 60)
	v.SetDefault("excluded_weekdays", []string{"saturday", "sunday"})
	v.SetDefault("slot_minutes", 30)
	v.SetDefault("buffer_minutes", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read booking policy %s: %w", path, err)
		}
	}

	var policy BookingPolicy
	if err := v.Unmarshal(&policy); err != nil {
		return nil, fmt.Errorf("parse booking policy %s: %w", path, err)
	}
	return &policy, nil
}

// AvailabilityConfig converts the policy into the engine's config. Doctor
// schedules and booked intervals are merged in per request.
func (p *BookingPolicy) AvailabilityConfig() (booking.AvailabilityConfig, error) {
	start, err := parseClock(p.BusinessStart)
	if err != nil {
		return booking.AvailabilityConfig{}, fmt.Errorf("business_start: %w", err)
	}
	end, err := parseClock(p.BusinessEnd)
	if err != nil {
		return booking.AvailabilityConfig{}, fmt.Errorf("business_end: %w", err)
	}
	if end <= start {
		return booking.AvailabilityConfig{}, fmt.Errorf("business hours are empty: %s-%s", p.BusinessStart, p.BusinessEnd)
	}

	excluded := make(map[time.Weekday]bool, len(p.ExcludedWeekdays))
	for _, name := range p.ExcludedWeekdays {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return booking.AvailabilityConfig{}, fmt.Errorf("unknown weekday %q", name)
		}
		excluded[day] = true
	}

	blackouts := make(map[string]bool, len(p.BlackoutDates))
	for _, d := range p.BlackoutDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return booking.AvailabilityConfig{}, fmt.Errorf("blackout date %q: %w", d, err)
		}
		blackouts[d] = true
	}

	return booking.AvailabilityConfig{
		BusinessStart:    start,
		BusinessEnd:      end,
		MaxAdvanceDays:   p.MaxAdvanceDays,
		BlackoutDates:    blackouts,
		ExcludedWeekdays: excluded,
		SlotMinutes:      p.SlotMinutes,
		BufferMinutes:    p.BufferMinutes,
	}, nil
}

// parseClock converts "15:04" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
