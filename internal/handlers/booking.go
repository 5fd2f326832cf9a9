package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// BookingHandler hosts the wizard sessions that drive step-by-step
// appointment booking. Each session belongs to one user; submission reuses
// the appointment handler's persistence path.
type BookingHandler struct {
	DB           *gorm.DB
	Base         booking.AvailabilityConfig
	Store        *booking.SessionStore
	Appointments *AppointmentHandler
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(db *gorm.DB, base booking.AvailabilityConfig, store *booking.SessionStore, appointments *AppointmentHandler) *BookingHandler {
	return &BookingHandler{DB: db, Base: base, Store: store, Appointments: appointments}
}

// sessionView is the wire shape of a wizard session.
type sessionView struct {
	ID       string        `json:"id"`
	Step     booking.Step  `json:"step"`
	StepName string        `json:"stepName"`
	Draft    booking.Draft `json:"draft"`
	Done     bool          `json:"done"`
}

func viewOfSession(s *booking.Session) sessionView {
	return sessionView{
		ID:       s.ID,
		Step:     s.Wizard.Step(),
		StepName: s.Wizard.Step().String(),
		Draft:    s.Wizard.Draft(),
		Done:     s.Wizard.Done(),
	}
}

// StartSession opens a new wizard session for the caller.
func (h *BookingHandler) StartSession(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	sess := h.Store.Start(userID, h.Base)

	// Patients book for themselves: their first step is pre-filled.
	if role, _ := middleware.GetUserRoleFromContext(c); role == booking.RolePatient {
		sess.Wizard.SelectPatient(userID, false)
	}

	utils.Created(c, "Booking session started", viewOfSession(sess))
}

// GetSession returns the caller's session state.
func (h *BookingHandler) GetSession(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var view sessionView
	err := h.Store.With(c.Param("id"), userID, func(s *booking.Session) error {
		view = viewOfSession(s)
		return nil
	})
	if err != nil {
		utils.NotFound(c, err.Error())
		return
	}
	utils.Success(c, "Booking session fetched", view)
}

// AdvanceRequest carries the input for the session's current step. Only the
// fields relevant to that step are read.
type AdvanceRequest struct {
	PatientID             string     `json:"patientId" binding:"omitempty,uuid"`
	CreateNewPatient      bool       `json:"createNewPatient"`
	Type                  string     `json:"type" binding:"omitempty,oneof=consultation follow-up emergency"`
	PreviousAppointmentID string     `json:"previousAppointmentId" binding:"omitempty,uuid"`
	DoctorID              string     `json:"doctorId" binding:"omitempty,uuid"`
	SkipDoctor            bool       `json:"skipDoctor"`
	ScheduledAt           *time.Time `json:"scheduledAt"`
	Mode                  string     `json:"mode" binding:"omitempty,oneof=online offline"`
	Notes                 string     `json:"notes"`
	Symptoms              string     `json:"symptoms"`
}

// AdvanceSession applies the step input and moves the wizard forward. A
// closed gate leaves the session where it was and reports why; nothing
// leaves the server.
func (h *BookingHandler) AdvanceSession(c *gin.Context) {
	var req AdvanceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	var view sessionView
	err := h.Store.With(c.Param("id"), userID, func(s *booking.Session) error {
		if err := h.applyStepInput(s.Wizard, &req, userID, role); err != nil {
			return err
		}
		if err := s.Wizard.Advance(); err != nil {
			return err
		}
		view = viewOfSession(s)
		return nil
	})
	if err != nil {
		h.respondWizardError(c, err)
		return
	}
	utils.Success(c, "Step completed", view)
}

// applyStepInput records the request's fields onto the wizard according to
// its current step.
func (h *BookingHandler) applyStepInput(w *booking.Wizard, req *AdvanceRequest, userID string, role booking.Role) error {
	switch w.Step() {
	case booking.StepPatient:
		if req.PatientID == "" && !req.CreateNewPatient {
			return nil // let the gate report the missing patient
		}
		if role == booking.RolePatient && req.PatientID != userID {
			return &apiError{Status: 403, Message: "Patients can only book appointments for themselves."}
		}
		w.SelectPatient(req.PatientID, req.CreateNewPatient)

	case booking.StepType:
		if req.Type == "" {
			return nil
		}
		t := booking.AppointmentType(req.Type)
		if t != booking.TypeFollowUp {
			return w.ChooseType(t, "", "")
		}
		previous, err := h.loadFollowUpSource(req.PreviousAppointmentID, w.Draft().PatientID)
		if err != nil {
			return err
		}
		return w.ChooseType(t, previous.ID, *previous.DoctorID)

	case booking.StepDoctor:
		if req.SkipDoctor {
			return w.SkipDoctor()
		}
		if req.DoctorID != "" {
			if _, apiErr := findUserWithRole(h.DB, req.DoctorID, booking.RoleDoctor); apiErr != nil {
				return apiErr
			}
			return w.SelectDoctor(req.DoctorID)
		}

	case booking.StepDate:
		if req.ScheduledAt != nil {
			w.SelectTime(*req.ScheduledAt)
		}
		// The gate must see the selected doctor's windows and bookings.
		if draft := w.Draft(); draft.DoctorID != "" && !draft.ScheduledAt.IsZero() {
			cfg, err := doctorAvailability(h.DB, h.Base, draft.DoctorID, draft.ScheduledAt, "")
			if err != nil {
				return errInternal("Failed to load doctor availability: " + err.Error())
			}
			w.SetAvailability(cfg)
		}

	case booking.StepDetails:
		return w.SetDetails(booking.Mode(req.Mode), req.Notes, req.Symptoms)
	}
	return nil
}

// loadFollowUpSource fetches and checks the previous appointment a follow-up
// inherits from.
func (h *BookingHandler) loadFollowUpSource(previousID, patientID string) (*models.Appointment, error) {
	if previousID == "" {
		return nil, booking.ErrFollowUpSource
	}
	var previous models.Appointment
	if err := h.DB.First(&previous, "id = ?", previousID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("Previous appointment not found")
		}
		return nil, errInternal("Database error: " + err.Error())
	}
	if patientID != "" && previous.PatientID != patientID {
		return nil, errBadRequest("The previous appointment belongs to a different patient.")
	}
	if previous.DoctorID == nil {
		return nil, errBadRequest("The previous appointment has no doctor to inherit.")
	}
	return &previous, nil
}

// BackRequest names the earlier step to revisit.
type BackRequest struct {
	Step *booking.Step `json:"step" binding:"required,min=0,max=5"`
}

// BackSession revisits an earlier step. Downstream fields survive until
// overwritten.
func (h *BookingHandler) BackSession(c *gin.Context) {
	var req BackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	var view sessionView
	err := h.Store.With(c.Param("id"), userID, func(s *booking.Session) error {
		if err := s.Wizard.Back(*req.Step); err != nil {
			return err
		}
		view = viewOfSession(s)
		return nil
	})
	if err != nil {
		h.respondWizardError(c, err)
		return
	}
	utils.Success(c, "Returned to earlier step", view)
}

// CancelSession discards the draft entirely; nothing was persisted.
func (h *BookingHandler) CancelSession(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	if err := h.Store.Delete(c.Param("id"), userID); err != nil {
		utils.NotFound(c, err.Error())
		return
	}
	utils.Success(c, "Booking session cancelled", nil)
}

// SubmitSession is the one boundary-crossing transition: the draft is handed
// to the store. On success the session shows its receipt; on an availability
// conflict the session stays at confirmation with every field intact.
func (h *BookingHandler) SubmitSession(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var view sessionView
	var created *models.Appointment
	err := h.Store.With(c.Param("id"), userID, func(s *booking.Session) error {
		if s.Wizard.Step() != booking.StepConfirm {
			return booking.ErrNotAtConfirm
		}
		appointment, apiErr := h.Appointments.persistDraft(s.Wizard.Draft())
		if apiErr != nil {
			return apiErr
		}
		if err := s.Wizard.SubmitSucceeded(); err != nil {
			return err
		}
		created = appointment
		view = viewOfSession(s)
		return nil
	})
	if err != nil {
		h.respondWizardError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", gin.H{
		"session":     view,
		"appointment": viewOf(*created, time.Now()),
	})
}

// respondWizardError maps engine and session errors onto the response
// taxonomy: unknown sessions are 404, permission problems 403, store
// conflicts keep their status, and everything else is a local validation
// failure.
func (h *BookingHandler) respondWizardError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}
	if errors.Is(err, booking.ErrSessionNotFound) {
		utils.NotFound(c, err.Error())
		return
	}
	utils.BadRequest(c, err.Error())
}
