package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository/memory"
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

var testMetrics = metrics.NewMetrics("api_test")

const futureDate = "2999-06-01"

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type testAPI struct {
	engine     *gin.Engine
	store      *memory.Store
	adminToken string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	log := logger.NewLogger(nil)
	hasher := security.NewBcryptHasher(4)
	jwtSvc := pkgauth.NewJWTService("test-secret", time.Hour, "hms-api")

	emitter := eventService.NewService(store.Outbox())
	emailSvc := email.NewSMTPService(config.EmailConfig{Enabled: false})

	authSvc := authService.NewService(store.Admins(), store.Patients(), jwtSvc, hasher, time.Hour)
	patientSvc := patientService.NewService(store.Patients(), hasher)
	doctorSvc := doctorService.NewService(store.Doctors())
	appointmentSvc := appointmentService.NewService(
		store.Appointments(), store.Patients(), store.Doctors(), store.Feedback(),
		emitter, emailSvc, log, testMetrics,
	)
	feedbackSvc := feedbackService.NewService(store.Feedback(), store.Appointments(), emitter, testMetrics)
	dashboardSvc := dashboardService.NewService(
		store.Patients(), store.Doctors(), store.Appointments(), store.Feedback(), time.Second,
	)

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")

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
		RateLimit: rate.Inf,
		RateBurst: 1,
		CORS:      middleware.DefaultCORSConfig(),
	}, authMW, handlers, log, testMetrics)

	admin, err := authSvc.RegisterAdmin(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)
	adminToken, err := jwtSvc.Generate(admin.ID, pkgauth.RoleAdmin, admin.Username)
	require.NoError(t, err)

	return &testAPI{engine: engine, store: store, adminToken: adminToken}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (a *testAPI) createDoctor(t *testing.T) string {
	t.Helper()
	w, resp := a.do(t, http.MethodPost, "/doctors", a.adminToken, map[string]interface{}{
		"name":      "Dr. Mehta",
		"phone":     "9876543210",
		"expertise": "Cardiology",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	var doctor model.Doctor
	require.NoError(t, json.Unmarshal(resp.Data, &doctor))
	return doctor.ID.String()
}

func (a *testAPI) registerPatient(t *testing.T, email string) (patientID, token string) {
	t.Helper()
	w, resp := a.do(t, http.MethodPost, "/auth/patients/register", "", map[string]interface{}{
		"name":     "Asha Rao",
		"phone":    "9123456780",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	var tokenResp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tokenResp))
	return tokenResp.User.ID, tokenResp.Token
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/patients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminLogin(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{
		"username": "admin",
		"password": "admin-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, _ = a.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingFlow(t *testing.T) {
	a := newTestAPI(t)
	doctorID := a.createDoctor(t)
	patientID, patientToken := a.registerPatient(t, "asha@example.com")

	// Patient books a slot.
	w, resp := a.do(t, http.MethodPost, "/appointments", patientToken, map[string]interface{}{
		"patientId": patientID,
		"doctorId":  doctorID,
		"date":      futureDate,
		"time":      "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	var appt model.AppointmentDetail
	require.NoError(t, json.Unmarshal(resp.Data, &appt))
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "Dr. Mehta", appt.Doctor.Name)
	assert.Equal(t, "asha@example.com", appt.Patient.Email)

	// A patient cannot pick the initial status.
	w, _ = a.do(t, http.MethodPost, "/appointments", patientToken, map[string]interface{}{
		"patientId": patientID,
		"doctorId":  doctorID,
		"date":      futureDate,
		"time":      "11:00",
		"status":    "Confirmed",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Same slot again fails with the doctor named in the message.
	w, resp = a.do(t, http.MethodPost, "/appointments", patientToken, map[string]interface{}{
		"patientId": patientID,
		"doctorId":  doctorID,
		"date":      futureDate,
		"time":      "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "Dr. Mehta")

	// Admin confirms via the status-only fast path.
	w, resp = a.do(t, http.MethodPut, fmt.Sprintf("/appointments/%s", appt.ID), a.adminToken, map[string]string{
		"status": "Confirmed",
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	scheduled, err := a.store.Appointments().HasSchedule(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.True(t, scheduled)
}

func TestPatientCannotReadOthersAppointments(t *testing.T) {
	a := newTestAPI(t)
	patientID, _ := a.registerPatient(t, "asha@example.com")
	_, otherToken := a.registerPatient(t, "vikram@example.com")

	w, _ := a.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/appointments", patientID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFeedbackFlow(t *testing.T) {
	a := newTestAPI(t)
	doctorID := a.createDoctor(t)
	patientID, patientToken := a.registerPatient(t, "asha@example.com")

	w, resp := a.do(t, http.MethodPost, "/appointments", patientToken, map[string]interface{}{
		"patientId": patientID,
		"doctorId":  doctorID,
		"date":      futureDate,
		"time":      "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	var appt model.Appointment
	require.NoError(t, json.Unmarshal(resp.Data, &appt))

	feedbackBody := map[string]interface{}{
		"appointmentId": appt.ID,
		"givenBy":       "Patient",
		"givenById":     patientID,
		"receiverId":    doctorID,
		"receiverType":  "Doctor",
		"rating":        5,
		"comments":      "excellent",
	}

	// Rejected while the appointment is still pending.
	w, _ = a.do(t, http.MethodPost, "/feedback", patientToken, feedbackBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = a.do(t, http.MethodPut, fmt.Sprintf("/appointments/%s", appt.ID), a.adminToken, map[string]string{
		"status": "Completed",
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, resp = a.do(t, http.MethodPost, "/feedback", patientToken, feedbackBody)
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	// Duplicate submission is rejected.
	w, _ = a.do(t, http.MethodPost, "/feedback", patientToken, feedbackBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The doctor now shows up among the top rated.
	w, resp = a.do(t, http.MethodGet, "/doctors/top-rated", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rated []model.DoctorRating
	require.NoError(t, json.Unmarshal(resp.Data, &rated))
	require.Len(t, rated, 1)
	assert.Equal(t, 5.0, rated[0].AvgRating)
	assert.Equal(t, 1, rated[0].ReviewCount)
}

func TestDashboardStatsAdminOnly(t *testing.T) {
	a := newTestAPI(t)
	_, patientToken := a.registerPatient(t, "asha@example.com")

	w, _ := a.do(t, http.MethodGet, "/dashboard/stats", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := a.do(t, http.MethodGet, "/dashboard/stats", a.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats model.DashboardStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 1, stats.TotalPatients)
}

func TestDeletePatientWithAppointmentsRejected(t *testing.T) {
	a := newTestAPI(t)
	doctorID := a.createDoctor(t)
	patientID, patientToken := a.registerPatient(t, "asha@example.com")

	w, resp := a.do(t, http.MethodPost, "/appointments", patientToken, map[string]interface{}{
		"patientId": patientID,
		"doctorId":  doctorID,
		"date":      futureDate,
		"time":      "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	w, resp = a.do(t, http.MethodDelete, "/patients/"+patientID, a.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "existing appointments")
}
