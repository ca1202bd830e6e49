package feedback

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository/memory"
	"github.com/medisched/hms-api/internal/service/event"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("feedback_svc_test")

type fixture struct {
	store   *memory.Store
	svc     Service
	patient *model.Patient
	doctor  *model.Doctor
	appt    *model.Appointment
}

func newFixture(t *testing.T, status model.AppointmentStatus) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	p := &model.Patient{Name: "Asha Rao", Email: "asha@example.com", PasswordHash: "x"}
	require.NoError(t, store.Patients().Create(ctx, p))
	d := &model.Doctor{Name: "Dr. Mehta", Expertise: "Cardiology"}
	require.NoError(t, store.Doctors().Create(ctx, d))

	appt := &model.Appointment{
		PatientID: p.ID,
		DoctorID:  d.ID,
		Date:      "2999-06-01",
		Time:      "10:00",
		Status:    status,
	}
	require.NoError(t, store.Appointments().Create(ctx, appt))

	svc := NewService(store.Feedback(), store.Appointments(), event.NewService(store.Outbox()), testMetrics)
	return &fixture{store: store, svc: svc, patient: p, doctor: d, appt: appt}
}

func (f *fixture) request() *model.CreateFeedbackRequest {
	return &model.CreateFeedbackRequest{
		AppointmentID: f.appt.ID,
		GivenBy:       model.PersonTypePatient,
		GivenByID:     f.patient.ID,
		ReceiverID:    f.doctor.ID,
		ReceiverType:  model.PersonTypeDoctor,
		Rating:        4,
		Comments:      "very thorough",
	}
}

func TestSubmitOnCompletedAppointment(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)

	fb, err := f.svc.Submit(context.Background(), nil, f.request())
	require.NoError(t, err)
	assert.Equal(t, 4, fb.Rating)
	assert.NotEqual(t, uuid.Nil, fb.ID)

	events := f.store.Outbox().Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventFeedbackSubmitted, events[0].EventType)
}

func TestSubmitRejectedUnlessCompleted(t *testing.T) {
	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
	} {
		f := newFixture(t, status)
		_, err := f.svc.Submit(context.Background(), nil, f.request())
		require.Error(t, err, "status %s", status)
		assert.True(t, errors.IsCode(err, errors.CodeBadRequest))
	}
}

func TestSubmitRatingBounds(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	for _, rating := range []int{0, -1, 6, 100} {
		req := f.request()
		req.Rating = rating
		_, err := f.svc.Submit(ctx, nil, req)
		require.Error(t, err, "rating %d", rating)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidRating))
	}

	for _, rating := range []int{1, 5} {
		req := f.request()
		req.Rating = rating
		req.GivenByID = uuid.New() // distinct giver keys each row
		_, err := f.svc.Submit(ctx, nil, req)
		require.NoError(t, err, "rating %d", rating)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, nil, f.request())
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, nil, f.request())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateFeedback))
}

func TestSubmitUnknownAppointment(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	req := f.request()
	req.AppointmentID = uuid.New()

	_, err := f.svc.Submit(context.Background(), nil, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestPatientMustSubmitAsSelf(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	// Claiming to be the doctor.
	claims := &pkgauth.Claims{SubjectID: f.patient.ID, Role: pkgauth.RolePatient}
	req := f.request()
	req.GivenBy = model.PersonTypeDoctor
	req.GivenByID = f.doctor.ID
	_, err := f.svc.Submit(ctx, claims, req)
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))

	// Reviewing someone else's appointment.
	stranger := &pkgauth.Claims{SubjectID: uuid.New(), Role: pkgauth.RolePatient}
	req = f.request()
	req.GivenByID = stranger.SubjectID
	_, err = f.svc.Submit(ctx, stranger, req)
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))
}

func TestUpdateRatingAndComments(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	fb, err := f.svc.Submit(ctx, nil, f.request())
	require.NoError(t, err)

	rating := 2
	comments := "changed my mind"
	updated, err := f.svc.Update(ctx, nil, fb.ID, &model.UpdateFeedbackRequest{
		Rating:   &rating,
		Comments: &comments,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)
	assert.Equal(t, "changed my mind", updated.Comments)

	bad := 9
	_, err = f.svc.Update(ctx, nil, fb.ID, &model.UpdateFeedbackRequest{Rating: &bad})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidRating))
}

func TestPatientCannotEditOthersFeedback(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	fb, err := f.svc.Submit(ctx, nil, f.request())
	require.NoError(t, err)

	stranger := &pkgauth.Claims{SubjectID: uuid.New(), Role: pkgauth.RolePatient}
	rating := 1
	_, err = f.svc.Update(ctx, stranger, fb.ID, &model.UpdateFeedbackRequest{Rating: &rating})
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))
}

func TestListByPatientScoped(t *testing.T) {
	f := newFixture(t, model.AppointmentStatusCompleted)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, nil, f.request())
	require.NoError(t, err)

	own := &pkgauth.Claims{SubjectID: f.patient.ID, Role: pkgauth.RolePatient}
	list, err := f.svc.ListByPatient(ctx, own, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stranger := &pkgauth.Claims{SubjectID: uuid.New(), Role: pkgauth.RolePatient}
	_, err = f.svc.ListByPatient(ctx, stranger, f.patient.ID)
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))
}
