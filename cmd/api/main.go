package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/medisched/hms-api/internal/config"
	"github.com/medisched/hms-api/internal/email"
	appointmentHandler "github.com/medisched/hms-api/internal/handler/appointment"
	authHandler "github.com/medisched/hms-api/internal/handler/auth"
	dashboardHandler "github.com/medisched/hms-api/internal/handler/dashboard"
	doctorHandler "github.com/medisched/hms-api/internal/handler/doctor"
	feedbackHandler "github.com/medisched/hms-api/internal/handler/feedback"
	healthHandler "github.com/medisched/hms-api/internal/handler/health"
	patientHandler "github.com/medisched/hms-api/internal/handler/patient"
	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/repository/postgres"
	"github.com/medisched/hms-api/internal/router"
	appointmentService "github.com/medisched/hms-api/internal/service/appointment"
	authService "github.com/medisched/hms-api/internal/service/auth"
	dashboardService "github.com/medisched/hms-api/internal/service/dashboard"
	doctorService "github.com/medisched/hms-api/internal/service/doctor"
	eventService "github.com/medisched/hms-api/internal/service/event"
	feedbackService "github.com/medisched/hms-api/internal/service/feedback"
	patientService "github.com/medisched/hms-api/internal/service/patient"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/logger"
	"github.com/medisched/hms-api/pkg/metrics"
	"github.com/medisched/hms-api/pkg/security"
	"github.com/medisched/hms-api/pkg/validator"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      parseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("hms")

	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)
	adminRepo := postgres.NewAdminRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	hasher := security.NewBcryptHasher(0)
	tokenExpiry := time.Duration(cfg.JWT.ExpiryHours) * time.Hour
	jwtSvc := pkgauth.NewJWTService(cfg.JWT.Secret, tokenExpiry, cfg.JWT.Issuer)
	emailSvc := email.NewSMTPService(cfg.Email)
	emitter := eventService.NewService(outboxRepo)

	authSvc := authService.NewService(adminRepo, patientRepo, jwtSvc, hasher, tokenExpiry)
	patientSvc := patientService.NewService(patientRepo, hasher)
	doctorSvc := doctorService.NewService(doctorRepo)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo, patientRepo, doctorRepo, feedbackRepo,
		emitter, emailSvc, log, m,
	)
	feedbackSvc := feedbackService.NewService(feedbackRepo, appointmentRepo, emitter, m)
	dashboardSvc := dashboardService.NewService(
		patientRepo, doctorRepo, appointmentRepo, feedbackRepo,
		time.Duration(cfg.Dashboard.CacheTTLSeconds)*time.Second,
	)

	authMW := middleware.NewAuthMiddleware(jwtSvc)
	validate := validator.New()

	handlers := router.Handlers{
		Auth:        authHandler.NewHandler(authSvc),
		Patient:     patientHandler.NewHandler(patientSvc, appointmentSvc, feedbackSvc),
		Doctor:      doctorHandler.NewHandler(doctorSvc, appointmentSvc),
		Appointment: appointmentHandler.NewHandler(appointmentSvc, feedbackSvc, validate),
		Feedback:    feedbackHandler.NewHandler(feedbackSvc),
		Dashboard:   dashboardHandler.NewHandler(dashboardSvc),
		Health:      healthHandler.NewHandler(db),
	}

	engine := router.New(router.Config{
		RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst: cfg.RateLimit.Burst,
		CORS:      middleware.DefaultCORSConfig(),
	}, authMW, handlers, log, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited")
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
