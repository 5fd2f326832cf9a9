package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/booking"
)

// Appointment represents one scheduled encounter between a patient and,
// optionally, a doctor. The stored status never includes overdue; that view
// is derived at read time.
type Appointment struct {
	BaseModel
	HumanID               string                  `gorm:"size:20;uniqueIndex" json:"humanId"`
	PatientID             string                  `gorm:"size:36;index" json:"patientId"`
	DoctorID              *string                 `gorm:"size:36;index" json:"doctorId"`
	ScheduledAt           time.Time               `json:"scheduledAt"`
	Status                booking.Status          `gorm:"size:20;default:'booked'" json:"status"`
	Type                  booking.AppointmentType `gorm:"size:20" json:"type"`
	Mode                  booking.Mode            `gorm:"size:10;default:'offline'" json:"mode"`
	Notes                 string                  `gorm:"type:text" json:"notes,omitempty"`
	Symptoms              string                  `gorm:"type:text" json:"symptoms,omitempty"`
	PreviousAppointmentID *string                 `gorm:"size:36" json:"previousAppointmentId,omitempty"`

	// Relations
	Patient User  `gorm:"foreignKey:PatientID" json:"patient,omitzero"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// EffectiveStatus derives the display status at now.
func (a *Appointment) EffectiveStatus(now time.Time) booking.Status {
	return booking.EffectiveStatus(a.Status, a.ScheduledAt, now)
}

// NextHumanID assigns the next sequential booking number for the appointment
// date, e.g. APT-20250814-0003. The count runs FOR UPDATE so concurrent
// transactions serialize on the day's rows instead of reading the same count
// and colliding on the unique index. Call inside the creating transaction.
func NextHumanID(tx *gorm.DB, scheduledAt time.Time) (string, error) {
	prefix := fmt.Sprintf("APT-%s-", scheduledAt.Format("20060102"))
	var count int64
	err := tx.Model(&Appointment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("human_id LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// BookedIntervalsForDoctor loads the doctor's active bookings on the given
// day as slot-sized intervals for collision checks. excludeID drops one
// appointment from the set, for reschedules of that same appointment.
func BookedIntervalsForDoctor(db *gorm.DB, doctorID string, day time.Time, slotMinutes int, excludeID string) ([]booking.Interval, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := db.Where("doctor_id = ? AND scheduled_at >= ? AND scheduled_at < ? AND status NOT IN ?",
		doctorID, dayStart, dayEnd,
		[]booking.Status{booking.StatusCancelled, booking.StatusCompleted},
	)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var appts []Appointment
	if err := query.Find(&appts).Error; err != nil {
		return nil, err
	}

	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	intervals := make([]booking.Interval, 0, len(appts))
	for _, a := range appts {
		intervals = append(intervals, booking.Interval{
			Start: a.ScheduledAt,
			End:   a.ScheduledAt.Add(time.Duration(slotMinutes) * time.Minute),
		})
	}
	return intervals, nil
}
