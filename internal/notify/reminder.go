package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/models"
)

// StartReminderScheduler runs a daily sweep over tomorrow's booked and
// confirmed appointments and publishes a reminder event for each. The cron
// runs in the background; the returned cron can be stopped on shutdown.
func StartReminderScheduler(spec string, db *gorm.DB, producer *Producer, log zerolog.Logger) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		if err := sendDailyReminders(db, producer, log); err != nil {
			log.Error().Err(err).Msg("reminder sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	log.Info().Str("spec", spec).Msg("reminder scheduler started")
	return scheduler, nil
}

func sendDailyReminders(db *gorm.DB, producer *Producer, log zerolog.Logger) error {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var appts []models.Appointment
	err := db.Where("scheduled_at >= ? AND scheduled_at < ? AND status IN ?",
		dayStart, dayEnd,
		[]booking.Status{booking.StatusBooked, booking.StatusConfirmed},
	).Find(&appts).Error
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, a := range appts {
		event := AppointmentEvent{
			Kind:          EventReminder,
			AppointmentID: a.ID,
			HumanID:       a.HumanID,
			PatientID:     a.PatientID,
			ScheduledAt:   a.ScheduledAt,
			Status:        string(a.Status),
		}
		if a.DoctorID != nil {
			event.DoctorID = *a.DoctorID
		}
		if err := producer.Publish(ctx, event); err != nil {
			log.Error().Err(err).Str("appointment", a.HumanID).Msg("reminder event failed")
		}
	}

	log.Info().Int("count", len(appts)).Msg("daily reminders swept")
	return nil
}
