package doctor

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/model"
	apptsvc "github.com/medisched/hms-api/internal/service/appointment"
	"github.com/medisched/hms-api/internal/service/doctor"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/httputil"
)

type Handler struct {
	service doctor.Service
	apptSvc apptsvc.Service
}

func NewHandler(service doctor.Service, apptSvc apptsvc.Service) *Handler {
	return &Handler{service: service, apptSvc: apptSvc}
}

// RegisterRoutes wires the doctor routes. Reads are open to any
// authenticated caller so patients can browse doctors; writes are
// admin-only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", authMW.RequireRole(pkgauth.RoleAdmin), h.CreateDoctor)
		doctors.GET("", h.ListDoctors)
		doctors.GET("/search", h.SearchDoctors)
		doctors.GET("/top-rated", h.TopRatedDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.PUT("/:id", authMW.RequireRole(pkgauth.RoleAdmin), h.UpdateDoctor)
		doctors.DELETE("/:id", authMW.RequireRole(pkgauth.RoleAdmin), h.DeleteDoctor)

		doctors.GET("/:id/appointments", authMW.RequireRole(pkgauth.RoleAdmin), h.ListAppointments)
	}
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid doctor id", err))
		return
	}

	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid doctor id", err))
		return
	}

	var req model.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid doctor id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.List(c.Request.Context(), nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) SearchDoctors(c *gin.Context) {
	filters := &model.DoctorFilters{
		SearchTerm: c.Query("q"),
		Expertise:  c.Query("expertise"),
	}
	doctors, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) TopRatedDoctors(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	doctors, err := h.service.TopRated(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid doctor id", err))
		return
	}

	filters := &model.AppointmentFilters{DoctorID: &id}
	appointments, err := h.apptSvc.List(c.Request.Context(), middleware.ClaimsFrom(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}
