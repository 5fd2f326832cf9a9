package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/models"
)

// apiError carries an HTTP status alongside the user-facing message so the
// shared creation path can be reused by both the direct endpoint and the
// wizard submission.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func errBadRequest(msg string) *apiError { return &apiError{http.StatusBadRequest, msg} }
func errNotFound(msg string) *apiError   { return &apiError{http.StatusNotFound, msg} }
func errConflict(msg string) *apiError   { return &apiError{http.StatusConflict, msg} }
func errInternal(msg string) *apiError   { return &apiError{http.StatusInternalServerError, msg} }

// doctorAvailability merges the clinic-wide policy with one doctor's weekly
// windows and the day's existing bookings. excludeID drops one appointment
// from the collision set, for reschedules of that same appointment.
func doctorAvailability(db *gorm.DB, base booking.AvailabilityConfig, doctorID string, day time.Time, excludeID string) (booking.AvailabilityConfig, error) {
	cfg := base

	weekly, slotMinutes, bufferMinutes, err := models.WeeklyWindows(db, doctorID)
	if err != nil {
		return cfg, err
	}
	if len(weekly) == 0 {
		// Doctor has no configured schedule; clinic-wide rules apply alone.
		return cfg, nil
	}
	cfg.Weekly = weekly
	if slotMinutes > 0 {
		cfg.SlotMinutes = slotMinutes
	}
	cfg.BufferMinutes = bufferMinutes

	booked, err := models.BookedIntervalsForDoctor(db, doctorID, day, cfg.SlotMinutes, excludeID)
	if err != nil {
		return cfg, err
	}
	cfg.Booked = booked
	return cfg, nil
}

// findUserWithRole fetches a user and checks the expected role.
func findUserWithRole(db *gorm.DB, id string, role booking.Role) (*models.User, *apiError) {
	var user models.User
	if err := db.Where("id = ? AND role = ?", id, role).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound(string(role) + " not found")
		}
		return nil, errInternal("Database error: " + err.Error())
	}
	return &user, nil
}
