package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/notify"
	"clinic-booking-server/internal/routes"
	"clinic-booking-server/internal/utils"
)

func main() {
	// Load environment variables; a missing .env is fine in production.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := utils.NewLogger(cfg.Environment)

	policy, err := config.LoadBookingPolicy(cfg.BookingPolicyFile)
	if err != nil {
		log.Fatalf("Error loading booking policy: %v", err)
	}
	availability, err := policy.AvailabilityConfig()
	if err != nil {
		log.Fatalf("Invalid booking policy: %v", err)
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	producer := notify.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
	if producer == nil {
		logger.Warn().Msg("no Kafka broker configured, appointment events disabled")
	} else {
		defer producer.Close()
	}

	scheduler, err := notify.StartReminderScheduler(cfg.ReminderCronSpec, db, producer, logger)
	if err != nil {
		log.Fatalf("Error starting reminder scheduler: %v", err)
	}
	defer scheduler.Stop()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RateLimitMiddleware())

	routes.SetupRoutes(router, db, cfg, availability, producer, logger)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
