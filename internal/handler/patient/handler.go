package patient

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/middleware"
	"github.com/medisched/hms-api/internal/model"
	apptsvc "github.com/medisched/hms-api/internal/service/appointment"
	feedbacksvc "github.com/medisched/hms-api/internal/service/feedback"
	"github.com/medisched/hms-api/internal/service/patient"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/httputil"
)

type Handler struct {
	service     patient.Service
	apptSvc     apptsvc.Service
	feedbackSvc feedbacksvc.Service
}

func NewHandler(service patient.Service, apptSvc apptsvc.Service, feedbackSvc feedbacksvc.Service) *Handler {
	return &Handler{service: service, apptSvc: apptSvc, feedbackSvc: feedbackSvc}
}

// RegisterRoutes wires the patient routes. CRUD is admin-only except
// reads of a patient's own record, guarded per-route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	patients := r.Group("/patients")
	{
		patients.POST("", authMW.RequireRole(pkgauth.RoleAdmin), h.CreatePatient)
		patients.GET("", authMW.RequireRole(pkgauth.RoleAdmin), h.ListPatients)
		patients.GET("/search", authMW.RequireRole(pkgauth.RoleAdmin), h.SearchPatients)
		patients.GET("/:id", authMW.RequireSelfOrAdmin("id"), h.GetPatient)
		patients.PUT("/:id", authMW.RequireSelfOrAdmin("id"), h.UpdatePatient)
		patients.DELETE("/:id", authMW.RequireRole(pkgauth.RoleAdmin), h.DeletePatient)

		patients.GET("/:id/appointments", authMW.RequireSelfOrAdmin("id"), h.ListAppointments)
		patients.GET("/:id/feedback", authMW.RequireSelfOrAdmin("id"), h.ListFeedback)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
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

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid patient id", err))
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid patient id", err))
		return
	}

	var req model.UpdatePatientRequest
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

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid patient id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context(), nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) SearchPatients(c *gin.Context) {
	filters := &model.PatientFilters{SearchTerm: c.Query("q")}
	patients, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid patient id", err))
		return
	}

	filters := &model.AppointmentFilters{PatientID: &id}
	appointments, err := h.apptSvc.List(c.Request.Context(), middleware.ClaimsFrom(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid patient id", err))
		return
	}

	feedback, err := h.feedbackSvc.ListByPatient(c.Request.Context(), middleware.ClaimsFrom(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, feedback)
}
