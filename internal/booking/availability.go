package booking

import (
	"errors"
	"time"
)

// Reasons a candidate time is rejected by CheckBookable.
var (
	ErrPast             = errors.New("appointment time must be in the future")
	ErrOutsideHours     = errors.New("appointment time is outside business hours")
	ErrBlackoutDate     = errors.New("date is blacked out for booking")
	ErrExcludedWeekday  = errors.New("bookings are not accepted on this weekday")
	ErrTooFarAhead      = errors.New("date exceeds the advance booking window")
	ErrNoScheduleWindow = errors.New("time does not fall within the doctor's schedule")
	ErrSlotTaken        = errors.New("slot collides with an existing booking")
)

const dateKeyFormat = "2006-01-02"

// TimeRange is a half-open [Start, End) window expressed in minutes from midnight.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether [start, end) lies fully inside the range.
func (r TimeRange) Contains(start, end int) bool {
	return start >= r.Start && end <= r.End
}

// Interval is a concrete booked time span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// AvailabilityConfig carries the clinic-wide booking policy plus, optionally,
// a single doctor's weekly schedule and existing bookings. When Weekly is
// empty only the clinic-wide checks apply; when it is present the
// schedule-aware check applies in addition, in every flow.
type AvailabilityConfig struct {
	BusinessStart    int                        `json:"businessStart"` // minute of day, inclusive
	BusinessEnd      int                        `json:"businessEnd"`   // minute of day, exclusive
	MaxAdvanceDays   int                        `json:"maxAdvanceDays"`
	BlackoutDates    map[string]bool            `json:"blackoutDates,omitempty"` // keyed "2006-01-02"
	ExcludedWeekdays map[time.Weekday]bool      `json:"excludedWeekdays,omitempty"`
	SlotMinutes      int                        `json:"slotMinutes"`
	BufferMinutes    int                        `json:"bufferMinutes"`
	Weekly           map[time.Weekday][]TimeRange `json:"weekly,omitempty"`
	Booked           []Interval                 `json:"booked,omitempty"`
}

// Slot is one bookable window in a doctor's day.
type Slot struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Booked bool      `json:"booked"`
}

// CheckBookable decides whether candidate is an acceptable appointment time
// under cfg, evaluated at now. It returns nil when bookable, otherwise one of
// the Err* reasons above. The function is pure: it reads cfg and never
// mutates it.
func CheckBookable(candidate, now time.Time, cfg AvailabilityConfig) error {
	if !candidate.After(now) {
		return ErrPast
	}

	minute := candidate.Hour()*60 + candidate.Minute()
	if minute < cfg.BusinessStart || minute >= cfg.BusinessEnd {
		return ErrOutsideHours
	}

	if cfg.BlackoutDates[candidate.Format(dateKeyFormat)] {
		return ErrBlackoutDate
	}
	if cfg.ExcludedWeekdays[candidate.Weekday()] {
		return ErrExcludedWeekday
	}

	if cfg.MaxAdvanceDays > 0 {
		horizon := startOfDay(now).AddDate(0, 0, cfg.MaxAdvanceDays)
		if startOfDay(candidate).After(horizon) {
			return ErrTooFarAhead
		}
	}

	if len(cfg.Weekly) > 0 {
		duration := cfg.SlotMinutes
		if duration <= 0 {
			duration = 1
		}
		if !inScheduleWindow(cfg.Weekly[candidate.Weekday()], minute, minute+duration) {
			return ErrNoScheduleWindow
		}
		// Collision check pads the candidate with the buffer on both ends so
		// back-to-back bookings keep the configured gap.
		pad := time.Duration(cfg.BufferMinutes) * time.Minute
		want := Interval{
			Start: candidate.Add(-pad),
			End:   candidate.Add(time.Duration(duration)*time.Minute + pad),
		}
		for _, taken := range cfg.Booked {
			if want.Overlaps(taken) {
				return ErrSlotTaken
			}
		}
	}

	return nil
}

// IsBookable is the boolean form of CheckBookable.
func IsBookable(candidate, now time.Time, cfg AvailabilityConfig) bool {
	return CheckBookable(candidate, now, cfg) == nil
}

// Slots generates the slot grid for one calendar date. Each window (the
// doctor's schedule windows when present, otherwise the business hours) is
// walked in slot+buffer strides; slots overlapping an existing booking are
// flagged rather than omitted so callers can render them as taken.
func Slots(date time.Time, cfg AvailabilityConfig) []Slot {
	duration := cfg.SlotMinutes
	if duration <= 0 {
		duration = 30
	}
	stride := duration + cfg.BufferMinutes

	windows := cfg.Weekly[date.Weekday()]
	if len(cfg.Weekly) == 0 {
		windows = []TimeRange{{Start: cfg.BusinessStart, End: cfg.BusinessEnd}}
	}

	day := startOfDay(date)
	var slots []Slot
	for _, w := range windows {
		for minute := w.Start; minute+duration <= w.End; minute += stride {
			start := day.Add(time.Duration(minute) * time.Minute)
			slot := Slot{Start: start, End: start.Add(time.Duration(duration) * time.Minute)}
			for _, taken := range cfg.Booked {
				if (Interval{Start: slot.Start, End: slot.End}).Overlaps(taken) {
					slot.Booked = true
					break
				}
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func inScheduleWindow(windows []TimeRange, start, end int) bool {
	for _, w := range windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
