package appointment

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/service/appointment"
	feedbacksvc "github.com/medisched/hms-api/internal/service/feedback"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/httputil"
	"github.com/medisched/hms-api/pkg/validator"
)

type Handler struct {
	service     appointment.Service
	feedbackSvc feedbacksvc.Service
	validate    *validator.Validator
}

func NewHandler(service appointment.Service, feedbackSvc feedbacksvc.Service, validate *validator.Validator) *Handler {
	return &Handler{service: service, feedbackSvc: feedbackSvc, validate: validate}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/upcoming", h.ListUpcoming)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", authMW.RequireRole(pkgauth.RoleAdmin), h.DeleteAppointment)

		appointments.GET("/:id/feedback", h.ListFeedback)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	appt, err := h.service.Book(c.Request.Context(), middleware.ClaimsFrom(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid appointment id", err))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), middleware.ClaimsFrom(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, detail)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
		Date:   c.Query("date"),
	}
	if v := c.Query("doctorId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.NewBadRequest("invalid doctorId filter", err))
			return
		}
		filters.DoctorID = &id
	}
	if v := c.Query("patientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.NewBadRequest("invalid patientId filter", err))
			return
		}
		filters.PatientID = &id
	}

	appointments, err := h.service.List(c.Request.Context(), middleware.ClaimsFrom(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	appointments, err := h.service.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

// UpdateAppointment accepts either a bare {"status": ...} body for the
// fast-path status change or a partial edit for reschedules.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid appointment id", err))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	appt, err := h.service.Update(c.Request.Context(), middleware.ClaimsFrom(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid appointment id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

func (h *Handler) ListFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid appointment id", err))
		return
	}

	feedback, err := h.feedbackSvc.ListByAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, feedback)
}
