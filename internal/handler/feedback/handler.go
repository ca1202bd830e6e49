package feedback

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/service/feedback"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/httputil"
)

type Handler struct {
	service feedback.Service
}

func NewHandler(service feedback.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	routes := r.Group("/feedback")
	{
		routes.POST("", h.SubmitFeedback)
		routes.GET("", authMW.RequireRole(pkgauth.RoleAdmin), h.ListFeedback)
		routes.GET("/recent", h.ListRecent)
		routes.GET("/:id", h.GetFeedback)
		routes.PUT("/:id", h.UpdateFeedback)
		routes.DELETE("/:id", authMW.RequireRole(pkgauth.RoleAdmin), h.DeleteFeedback)
	}
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req model.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	fb, err := h.service.Submit(c.Request.Context(), middleware.ClaimsFrom(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, fb)
}

func (h *Handler) GetFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid feedback id", err))
		return
	}

	fb, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, fb)
}

func (h *Handler) UpdateFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid feedback id", err))
		return
	}

	var req model.UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	fb, err := h.service.Update(c.Request.Context(), middleware.ClaimsFrom(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, fb)
}

func (h *Handler) DeleteFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid feedback id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

func (h *Handler) ListFeedback(c *gin.Context) {
	feedback, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, feedback)
}

func (h *Handler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	feedback, err := h.service.ListRecent(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, feedback)
}
