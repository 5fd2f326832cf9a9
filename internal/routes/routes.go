package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/notify"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, base booking.AvailabilityConfig, producer *notify.Producer, log zerolog.Logger) {
	sessionStore := booking.NewSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, base, producer, log)
	availabilityHandler := handlers.NewAvailabilityHandler(db, base)
	bookingHandler := handlers.NewBookingHandler(db, base, sessionStore, appointmentHandler)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		userRoutes := private.Group("/users")
		{
			// Doctor lookup backs the wizard's doctor-selection step.
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient lookup backs the patient-selection step; staff only.
			userRoutes.GET("/patients",
				middleware.RoleAuthMiddleware(booking.RoleDoctor, booking.RoleReceptionist, booking.RoleAdmin),
				userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(booking.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
			}
		}

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("/:id/availability", availabilityHandler.GetDoctorAvailability)
			doctorRoutes.GET("/:id/slots", availabilityHandler.GetDoctorSlots)
			doctorRoutes.GET("/:id/schedules", availabilityHandler.GetDoctorSchedules)
			doctorRoutes.POST("/schedules",
				middleware.RoleAuthMiddleware(booking.RoleDoctor, booking.RoleAdmin),
				availabilityHandler.CreateDoctorSchedule)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("",
				middleware.RoleAuthMiddleware(booking.RolePatient, booking.RoleDoctor, booking.RoleReceptionist, booking.RoleAdmin),
				appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)

			// Lifecycle changes go through the transition engine; fine-grained
			// authorization happens in the handlers.
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
		}

		// Booking wizard sessions: server-held drafts driven step by step.
		bookingRoutes := private.Group("/booking-sessions")
		{
			bookingRoutes.POST("", bookingHandler.StartSession)
			bookingRoutes.GET("/:id", bookingHandler.GetSession)
			bookingRoutes.POST("/:id/advance", bookingHandler.AdvanceSession)
			bookingRoutes.POST("/:id/back", bookingHandler.BackSession)
			bookingRoutes.POST("/:id/cancel", bookingHandler.CancelSession)
			bookingRoutes.POST("/:id/submit", bookingHandler.SubmitSession)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
