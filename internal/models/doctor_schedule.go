package models

import (
	"time"

	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
)

// DoctorSchedule is one weekly working window for a doctor: a weekday plus a
// [start, end) range in minutes from midnight, with the slot geometry used to
// cut it into bookable slots.
type DoctorSchedule struct {
	BaseModel
	DoctorID      string `gorm:"size:36;index" json:"doctorId"`
	Weekday       int    `gorm:"index" json:"weekday"` // 0 = Sunday, time.Weekday numbering
	StartMinute   int    `json:"startMinute"`
	EndMinute     int    `json:"endMinute"`
	SlotMinutes   int    `gorm:"default:30" json:"slotMinutes"`
	BufferMinutes int    `gorm:"default:0" json:"bufferMinutes"`
	IsActive      bool   `gorm:"default:true" json:"isActive"`

	Doctor User `gorm:"foreignKey:DoctorID" json:"-"`
}

// Overlaps reports whether two windows on the same weekday intersect.
func (s *DoctorSchedule) Overlaps(other *DoctorSchedule) bool {
	return s.Weekday == other.Weekday && s.StartMinute < other.EndMinute && other.StartMinute < s.EndMinute
}

// WeeklyWindows assembles the doctor's active windows keyed by weekday, in
// the engine's shape. The returned slot geometry is taken from the first
// active window; schedules are expected to share one duration per doctor.
func WeeklyWindows(db *gorm.DB, doctorID string) (map[time.Weekday][]booking.TimeRange, int, int, error) {
	var rows []DoctorSchedule
	err := db.Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Order("weekday asc, start_minute asc").
		Find(&rows).Error
	if err != nil {
		return nil, 0, 0, err
	}

	weekly := make(map[time.Weekday][]booking.TimeRange)
	slotMinutes, bufferMinutes := 0, 0
	for _, row := range rows {
		day := time.Weekday(row.Weekday)
		weekly[day] = append(weekly[day], booking.TimeRange{Start: row.StartMinute, End: row.EndMinute})
		if slotMinutes == 0 {
			slotMinutes = row.SlotMinutes
			bufferMinutes = row.BufferMinutes
		}
	}
	return weekly, slotMinutes, bufferMinutes, nil
}
