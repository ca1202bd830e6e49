package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/service/dashboard"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/httputil"
)

type Handler struct {
	service dashboard.Service
}

func NewHandler(service dashboard.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	routes := r.Group("/dashboard")
	{
		routes.GET("/stats", authMW.RequireRole(pkgauth.RoleAdmin), h.Stats)
	}
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
