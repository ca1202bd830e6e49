package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/medisched/hms-api/internal/handler/appointment"
	"github.com/medisched/hms-api/internal/handler/auth"
	"github.com/medisched/hms-api/internal/handler/dashboard"
	"github.com/medisched/hms-api/internal/handler/doctor"
	"github.com/medisched/hms-api/internal/handler/feedback"
	"github.com/medisched/hms-api/internal/handler/health"
	"github.com/medisched/hms-api/internal/handler/patient"
	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/pkg/logger"
	"github.com/medisched/hms-api/pkg/metrics"
)

type Config struct {
	RateLimit rate.Limit
	RateBurst int
	CORS      middleware.CORSConfig
}

type Handlers struct {
	Auth        *auth.Handler
	Patient     *patient.Handler
	Doctor      *doctor.Handler
	Appointment *appointment.Handler
	Feedback    *feedback.Handler
	Dashboard   *dashboard.Handler
	Health      *health.Handler
}

// New assembles the engine: global middleware, public auth and health
// routes, and the authenticated /api/v1 surface.
func New(
	cfg Config,
	authMW *middleware.AuthMiddleware,
	handlers Handlers,
	log *logger.Logger,
	m *metrics.Metrics,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.CORS(cfg.CORS),
		middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		}).RateLimit(),
		middleware.ErrorHandler(log),
	)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	handlers.Health.RegisterRoutes(v1)
	handlers.Auth.RegisterRoutes(v1)

	authed := v1.Group("")
	authed.Use(authMW.Authenticate())
	handlers.Patient.RegisterRoutes(authed, authMW)
	handlers.Doctor.RegisterRoutes(authed, authMW)
	handlers.Appointment.RegisterRoutes(authed, authMW)
	handlers.Feedback.RegisterRoutes(authed, authMW)
	handlers.Dashboard.RegisterRoutes(authed, authMW)

	return engine
}
