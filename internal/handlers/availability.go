package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// AvailabilityHandler serves doctor availability and weekly schedules.
type AvailabilityHandler struct {
	DB   *gorm.DB
	Base booking.AvailabilityConfig
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(db *gorm.DB, base booking.AvailabilityConfig) *AvailabilityHandler {
	return &AvailabilityHandler{DB: db, Base: base}
}

// GetDoctorAvailability returns the merged availability configuration for a
// doctor: the clinic policy plus the doctor's weekly windows.
func (h *AvailabilityHandler) GetDoctorAvailability(c *gin.Context) {
	doctorID := c.Param("id")
	if _, apiErr := findUserWithRole(h.DB, doctorID, booking.RoleDoctor); apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}

	cfg, err := doctorAvailability(h.DB, h.Base, doctorID, time.Now(), "")
	if err != nil {
		utils.InternalServerError(c, "Failed to load doctor availability: "+err.Error())
		return
	}
	// Booked intervals are per-day detail; the config view omits them.
	cfg.Booked = nil
	utils.Success(c, "Doctor availability fetched successfully", cfg)
}

// GetDoctorSlots returns the generated slot grid for a doctor on one date,
// with already-taken slots flagged.
func (h *AvailabilityHandler) GetDoctorSlots(c *gin.Context) {
	doctorID := c.Param("id")
	if _, apiErr := findUserWithRole(h.DB, doctorID, booking.RoleDoctor); apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		utils.BadRequest(c, "Query parameter 'date' must be formatted YYYY-MM-DD")
		return
	}

	cfg, err := doctorAvailability(h.DB, h.Base, doctorID, date, "")
	if err != nil {
		utils.InternalServerError(c, "Failed to load doctor availability: "+err.Error())
		return
	}
	if cfg.ExcludedWeekdays[date.Weekday()] || cfg.BlackoutDates[date.Format("2006-01-02")] {
		utils.Success(c, "No slots on this date", []booking.Slot{})
		return
	}

	utils.Success(c, "Slots fetched successfully", booking.Slots(date, cfg))
}

// CreateDoctorScheduleRequest represents the request body for adding a
// weekly working window.
type CreateDoctorScheduleRequest struct {
	DoctorID      string `json:"doctorId" binding:"required,uuid"`
	Weekday       *int   `json:"weekday" binding:"required,min=0,max=6"`
	StartMinute   int    `json:"startMinute" binding:"min=0,max=1439"`
	EndMinute     int    `json:"endMinute" binding:"required,min=1,max=1440"`
	SlotMinutes   int    `json:"slotMinutes" binding:"omitempty,min=5,max=120"`
	BufferMinutes int    `json:"bufferMinutes" binding:"omitempty,min=0,max=60"`
}

// CreateDoctorSchedule adds one weekly window for a doctor, rejecting
// overlaps with existing active windows on the same weekday.
func (h *AvailabilityHandler) CreateDoctorSchedule(c *gin.Context) {
	var req CreateDoctorScheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.StartMinute >= req.EndMinute {
		utils.BadRequest(c, "startMinute must be before endMinute")
		return
	}
	if _, apiErr := findUserWithRole(h.DB, req.DoctorID, booking.RoleDoctor); apiErr != nil {
		utils.Error(c, apiErr.Status, apiErr.Message)
		return
	}

	schedule := models.DoctorSchedule{
		DoctorID:      req.DoctorID,
		Weekday:       *req.Weekday,
		StartMinute:   req.StartMinute,
		EndMinute:     req.EndMinute,
		SlotMinutes:   req.SlotMinutes,
		BufferMinutes: req.BufferMinutes,
		IsActive:      true,
	}
	if schedule.SlotMinutes == 0 {
		schedule.SlotMinutes = h.Base.SlotMinutes
	}

	var existing []models.DoctorSchedule
	err := h.DB.Where("doctor_id = ? AND weekday = ? AND is_active = ?", req.DoctorID, *req.Weekday, true).
		Find(&existing).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	for i := range existing {
		if schedule.Overlaps(&existing[i]) {
			utils.Conflict(c, "Schedule overlaps with an existing window")
			return
		}
	}

	if err := h.DB.Create(&schedule).Error; err != nil {
		utils.InternalServerError(c, "Failed to create doctor schedule: "+err.Error())
		return
	}
	utils.Created(c, "Doctor schedule created successfully", schedule)
}

// GetDoctorSchedules lists a doctor's active weekly windows.
func (h *AvailabilityHandler) GetDoctorSchedules(c *gin.Context) {
	var schedules []models.DoctorSchedule
	err := h.DB.Where("doctor_id = ? AND is_active = ?", c.Param("id"), true).
		Order("weekday asc, start_minute asc").
		Find(&schedules).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch schedules: "+err.Error())
		return
	}
	utils.Success(c, "Schedules fetched successfully", schedules)
}
