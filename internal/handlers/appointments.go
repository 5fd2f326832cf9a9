package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/notify"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB       *gorm.DB
	Base     booking.AvailabilityConfig
	Producer *notify.Producer
	Log      zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, base booking.AvailabilityConfig, producer *notify.Producer, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Base: base, Producer: producer, Log: log}
}

// appointmentView decorates an appointment with its derived display status.
type appointmentView struct {
	models.Appointment
	EffectiveStatus booking.Status `json:"effectiveStatus"`
}

func viewOf(a models.Appointment, now time.Time) appointmentView {
	return appointmentView{Appointment: a, EffectiveStatus: a.EffectiveStatus(now)}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PatientID             string    `json:"patientId" binding:"required,uuid"`
	DoctorID              string    `json:"doctorId" binding:"omitempty,uuid"`
	Type                  string    `json:"type" binding:"required,oneof=consultation follow-up emergency"`
	ScheduledAt           time.Time `json:"scheduledAt" binding:"required"`
	Mode                  string    `json:"mode" binding:"omitempty,oneof=online offline"`
	Notes                 string    `json:"notes"`
	Symptoms              string    `json:"symptoms"`
	PreviousAppointmentID string    `json:"previousAppointmentId" binding:"omitempty,uuid"`
}

// CreateAppointment handles creating a new appointment directly, without the
// wizard. The same validation and persistence path backs wizard submission.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actorRole, _ := middleware.GetUserRoleFromContext(c)
	if actorRole == booking.RolePatient && actorID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	draft := booking.Draft{
		PatientID:             req.PatientID,
		DoctorID:              req.DoctorID,
		DoctorSkipped:         req.DoctorID == "",
		Type:                  booking.AppointmentType(req.Type),
		ScheduledAt:           req.ScheduledAt,
		Mode:                  booking.Mode(req.Mode),
		Notes:                 req.Notes,
		Symptoms:              req.Symptoms,
		PreviousAppointmentID: req.PreviousAppointmentID,
	}

	appointment, apiErr := h.persistDraft(draft)
	if apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}

	utils.Created(c, "Appointment created successfully", viewOf(*appointment, time.Now()))
}

// persistDraft validates a completed draft against the store and creates the
// appointment. This is the single boundary-crossing write: the availability
// check here is authoritative and its rejection is surfaced verbatim.
func (h *AppointmentHandler) persistDraft(draft booking.Draft) (*models.Appointment, *apiError) {
	if _, apiErr := findUserWithRole(h.DB, draft.PatientID, booking.RolePatient); apiErr != nil {
		return nil, apiErr
	}

	var doctorID *string
	if draft.DoctorID != "" {
		if _, apiErr := findUserWithRole(h.DB, draft.DoctorID, booking.RoleDoctor); apiErr != nil {
			return nil, apiErr
		}
		doctorID = &draft.DoctorID
	}

	var previousID *string
	if draft.Type == booking.TypeFollowUp {
		if draft.PreviousAppointmentID == "" {
			return nil, errBadRequest("A follow-up requires a previous appointment.")
		}
		var previous models.Appointment
		if err := h.DB.First(&previous, "id = ?", draft.PreviousAppointmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errNotFound("Previous appointment not found")
			}
			return nil, errInternal("Database error: " + err.Error())
		}
		if previous.PatientID != draft.PatientID {
			return nil, errBadRequest("The previous appointment belongs to a different patient.")
		}
		// The follow-up inherits the prior appointment's doctor.
		if previous.DoctorID != nil {
			if doctorID != nil && *doctorID != *previous.DoctorID {
				return nil, errBadRequest("A follow-up must keep the previous appointment's doctor.")
			}
			doctorID = previous.DoctorID
			draft.DoctorID = *previous.DoctorID
		}
		previousID = &draft.PreviousAppointmentID
	}

	mode := draft.Mode
	if mode == "" {
		mode = booking.ModeOffline
	}

	appointment := models.Appointment{
		PatientID:             draft.PatientID,
		DoctorID:              doctorID,
		ScheduledAt:           draft.ScheduledAt,
		Status:                booking.StatusBooked,
		Type:                  draft.Type,
		Mode:                  mode,
		Notes:                 draft.Notes,
		Symptoms:              draft.Symptoms,
		PreviousAppointmentID: previousID,
	}

	// The availability read and the insert share one transaction, with the
	// doctor's day read under FOR UPDATE, so two concurrent requests for the
	// same slot cannot both pass the check.
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		cfg := h.Base
		if draft.DoctorID != "" {
			locked := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Session(&gorm.Session{})
			var err error
			cfg, err = doctorAvailability(locked, h.Base, draft.DoctorID, draft.ScheduledAt, "")
			if err != nil {
				return errInternal("Failed to load doctor availability: " + err.Error())
			}
		}
		if err := booking.CheckBookable(draft.ScheduledAt, time.Now(), cfg); err != nil {
			return errConflict(err.Error())
		}

		humanID, err := models.NextHumanID(tx, draft.ScheduledAt)
		if err != nil {
			return err
		}
		appointment.HumanID = humanID
		return tx.Create(&appointment).Error
	})
	if txErr != nil {
		var apiErr *apiError
		if errors.As(txErr, &apiErr) {
			return nil, apiErr
		}
		return nil, errInternal("Failed to create appointment: " + txErr.Error())
	}

	h.publish(notify.EventCreated, &appointment)
	return &appointment, nil
}

func (h *AppointmentHandler) publish(kind string, a *models.Appointment) {
	event := notify.AppointmentEvent{
		Kind:          kind,
		AppointmentID: a.ID,
		HumanID:       a.HumanID,
		PatientID:     a.PatientID,
		ScheduledAt:   a.ScheduledAt,
		Status:        string(a.Status),
	}
	if a.DoctorID != nil {
		event.DoctorID = *a.DoctorID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, event); err != nil {
		h.Log.Error().Err(err).Str("appointment", a.HumanID).Msg("event publish failed")
	}
}

// GetAppointmentsForUser handles fetching appointments for the logged-in
// user. Patients see their own, doctors see their schedule, admins and
// receptionists see everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Patient").Preload("Doctor").Order("scheduled_at asc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	var err error
	switch role {
	case booking.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case booking.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case booking.RoleAdmin, booking.RoleReceptionist:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments.")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	now := time.Now()
	views := make([]appointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, viewOf(a, now))
	}
	utils.Success(c, "Appointments fetched successfully", views)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient or doctor, receptionists and admins.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, apiErr := h.loadAuthorized(c)
	if apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}
	utils.Success(c, "Appointment fetched successfully", viewOf(*appointment, time.Now()))
}

// loadAuthorized fetches the appointment in the path and verifies the caller
// may act on it.
func (h *AppointmentHandler) loadAuthorized(c *gin.Context) (*models.Appointment, *apiError) {
	var appointment models.Appointment
	err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("Appointment not found")
		}
		return nil, errInternal("Database error: " + err.Error())
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	switch role {
	case booking.RoleAdmin, booking.RoleReceptionist:
		return &appointment, nil
	case booking.RolePatient:
		if appointment.PatientID == userID {
			return &appointment, nil
		}
	case booking.RoleDoctor:
		if appointment.DoctorID != nil && *appointment.DoctorID == userID {
			return &appointment, nil
		}
	}
	return nil, &apiError{Status: 403, Message: "You are not authorized to access this appointment"}
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status booking.Status `json:"status" binding:"required,oneof=booked confirmed in-progress on-hold completed cancelled"`
	Notes  string         `json:"notes"`
}

// UpdateAppointmentStatus moves an appointment through its lifecycle. The
// transition engine decides legality and role permission; nothing is written
// on a denial.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	// Returning to booked is a reschedule: it needs a new time and the
	// availability re-check, which the reschedule endpoint owns.
	if req.Status == booking.StatusBooked {
		utils.BadRequest(c, "Use the reschedule endpoint to move an appointment back to booked.")
		return
	}

	appointment, apiErr := h.loadAuthorized(c)
	if apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	now := time.Now()
	current := appointment.EffectiveStatus(now)
	decision := booking.CheckTransition(current, req.Status, role)
	if !decision.Allowed {
		if decision.Reason == booking.ReasonInsufficientPermission {
			utils.Forbidden(c, decision.Reason)
		} else {
			utils.Conflict(c, decision.Reason)
		}
		return
	}

	appointment.Status = req.Status
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}
	if err := h.DB.Save(appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment status: "+err.Error())
		return
	}

	h.publish(notify.EventStatusChanged, appointment)
	utils.Success(c, "Appointment status updated successfully", viewOf(*appointment, now))
}

// RescheduleAppointmentRequest represents the request body for rescheduling
// an appointment.
type RescheduleAppointmentRequest struct {
	NewScheduledAt time.Time `json:"newScheduledAt" binding:"required"`
	Notes          string    `json:"notes"`
}

// RescheduleAppointment moves an appointment to a new time. Rescheduling is
// the transition back to booked; the new time must pass the availability
// check with the appointment's own slot excluded from collisions.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, apiErr := h.loadAuthorized(c)
	if apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	now := time.Now()
	current := appointment.EffectiveStatus(now)
	decision := booking.CheckTransition(current, booking.StatusBooked, role)
	if !decision.Allowed {
		if decision.Reason == booking.ReasonInsufficientPermission {
			utils.Forbidden(c, decision.Reason)
		} else {
			utils.Conflict(c, decision.Reason)
		}
		return
	}

	// Same transaction shape as creation: the availability read for the new
	// time is locked alongside the write.
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		cfg := h.Base
		if appointment.DoctorID != nil {
			locked := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Session(&gorm.Session{})
			var err error
			cfg, err = doctorAvailability(locked, h.Base, *appointment.DoctorID, req.NewScheduledAt, appointment.ID)
			if err != nil {
				return errInternal("Failed to load doctor availability: " + err.Error())
			}
		}
		if err := booking.CheckBookable(req.NewScheduledAt, now, cfg); err != nil {
			return errConflict(err.Error())
		}

		appointment.ScheduledAt = req.NewScheduledAt
		appointment.Status = booking.StatusBooked
		if req.Notes != "" {
			appointment.Notes = req.Notes
		}
		return tx.Save(appointment).Error
	})
	if txErr != nil {
		var apiErr *apiError
		if errors.As(txErr, &apiErr) {
			utils.Error(c, apiErr.Status, apiErr.Message)
		} else {
			utils.InternalServerError(c, "Failed to reschedule appointment: "+txErr.Error())
		}
		return
	}

	h.publish(notify.EventRescheduled, appointment)
	utils.Success(c, "Appointment rescheduled successfully", viewOf(*appointment, now))
}
