package appointment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/hms-api/internal/config"
	"github.com/medisched/hms-api/internal/email"
	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/internal/repository/memory"
	"github.com/medisched/hms-api/internal/service/event"
	pkgauth "github.com/medisched/hms-api/pkg/auth"
	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/logger"
	"github.com/medisched/hms-api/pkg/metrics"
)

// registered once; prometheus collectors cannot be registered twice in
// the same binary
var testMetrics = metrics.NewMetrics("appt_svc_test")

const (
	futureDate = "2999-06-01"
	pastDate   = "2000-01-01"
)

type fixture struct {
	store   *memory.Store
	svc     Service
	patient *model.Patient
	doctor  *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	p := &model.Patient{Name: "Asha Rao", Email: "asha@example.com", PasswordHash: "x"}
	require.NoError(t, store.Patients().Create(ctx, p))

	d := &model.Doctor{Name: "Dr. Mehta", Expertise: "Cardiology"}
	require.NoError(t, store.Doctors().Create(ctx, d))

	svc := NewService(
		store.Appointments(),
		store.Patients(),
		store.Doctors(),
		store.Feedback(),
		event.NewService(store.Outbox()),
		email.NewSMTPService(config.EmailConfig{Enabled: false}),
		logger.NewLogger(nil),
		testMetrics,
	)

	return &fixture{store: store, svc: svc, patient: p, doctor: d}
}

func (f *fixture) book(t *testing.T, status model.AppointmentStatus, date, timeSlot string) *model.AppointmentDetail {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      date,
		Time:      timeSlot,
		Status:    status,
	})
	require.NoError(t, err)
	return appt
}

func TestBookDefaultsToPending(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, "", futureDate, "10:00")
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "Cardiology", appt.Specialization)

	scheduled, err := f.store.Appointments().HasSchedule(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.False(t, scheduled, "pending booking must not appear on the schedule")
}

func TestBookReturnsPatientAndDoctorSummaries(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, "", futureDate, "10:00")
	assert.Equal(t, "Asha Rao", appt.Patient.Name)
	assert.Equal(t, f.patient.ID, appt.Patient.ID)
	assert.Equal(t, "Dr. Mehta", appt.Doctor.Name)
	assert.Equal(t, "Cardiology", appt.Doctor.Expertise)
}

func TestPatientCannotChooseInitialStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	self := &pkgauth.Claims{SubjectID: f.patient.ID, Role: pkgauth.RolePatient}

	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
	} {
		_, err := f.svc.Book(ctx, self, &model.CreateAppointmentRequest{
			PatientID: f.patient.ID,
			DoctorID:  f.doctor.ID,
			Date:      futureDate,
			Time:      "10:00",
			Status:    status,
		})
		require.Error(t, err, "status %s", status)
		assert.True(t, errors.IsCode(err, errors.CodeForbidden))
	}

	// Explicit Pending and no status at all are both fine.
	appt, err := f.svc.Book(ctx, self, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      futureDate,
		Time:      "10:00",
		Status:    model.AppointmentStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	scheduled, err := f.store.Appointments().HasSchedule(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, scheduled)
}

func TestPatientCanCancelButNotConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	self := &pkgauth.Claims{SubjectID: f.patient.ID, Role: pkgauth.RolePatient}
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	confirmed := model.AppointmentStatusConfirmed
	_, err := f.svc.Update(ctx, self, appt.ID, &model.UpdateAppointmentRequest{Status: &confirmed})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))

	cancelled := model.AppointmentStatusCancelled
	updated, err := f.svc.Update(ctx, self, appt.ID, &model.UpdateAppointmentRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
}

func TestBookConfirmedCreatesScheduleRow(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, model.AppointmentStatusConfirmed, futureDate, "10:00")

	scheduled, err := f.store.Appointments().HasSchedule(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.True(t, scheduled)
}

func TestBookRejectsTakenSlot(t *testing.T) {
	f := newFixture(t)
	f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	_, err := f.svc.Book(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      futureDate,
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSlotConflict))
	assert.Contains(t, err.Error(), "Dr. Mehta")
	assert.Contains(t, err.Error(), futureDate)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	cancelled := model.AppointmentStatusCancelled
	_, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &cancelled})
	require.NoError(t, err)

	// Same slot can be booked again once the original is cancelled.
	f.book(t, model.AppointmentStatusPending, futureDate, "10:00")
}

func TestBookPastDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      pastDate,
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePastDate))
}

func TestBookUnknownPatientAndDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, nil, &model.CreateAppointmentRequest{
		PatientID: uuid.New(),
		DoctorID:  f.doctor.ID,
		Date:      futureDate,
		Time:      "10:00",
	})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = f.svc.Book(ctx, nil, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  uuid.New(),
		Date:      futureDate,
		Time:      "10:00",
	})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestPatientCannotBookForOthers(t *testing.T) {
	f := newFixture(t)
	other := &pkgauth.Claims{SubjectID: uuid.New(), Role: pkgauth.RolePatient}

	_, err := f.svc.Book(context.Background(), other, &model.CreateAppointmentRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      futureDate,
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))
}

func TestStatusUpdateSyncsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	confirmed := model.AppointmentStatusConfirmed
	updated, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)

	scheduled, err := f.store.Appointments().HasSchedule(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, scheduled)

	completed := model.AppointmentStatusCompleted
	_, err = f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &completed})
	require.NoError(t, err)

	scheduled, err = f.store.Appointments().HasSchedule(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, scheduled, "completing must remove the schedule row")
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	completed := model.AppointmentStatusCompleted
	_, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &completed})
	require.NoError(t, err)

	// Terminal states accept no further transitions.
	for _, next := range []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
	} {
		status := next
		_, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &status})
		require.Error(t, err, "Completed -> %s", next)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidTransition))
	}
}

func TestConfirmRechecksSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	cancelled := model.AppointmentStatusCancelled
	_, err := f.svc.Update(ctx, nil, first.ID, &model.UpdateAppointmentRequest{Status: &cancelled})
	require.NoError(t, err)

	// Slot is free again, so a rival booking takes it.
	f.book(t, model.AppointmentStatusConfirmed, futureDate, "10:00")

	// The cancelled one is terminal; trying to revive it fails on the
	// transition, not on the slot.
	confirmed := model.AppointmentStatusConfirmed
	_, err = f.svc.Update(ctx, nil, first.ID, &model.UpdateAppointmentRequest{Status: &confirmed})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidTransition))
}

func TestRescheduleToPastDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	past := pastDate
	_, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Date: &past})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePastDate))
}

func TestRescheduleToTakenSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, model.AppointmentStatusPending, futureDate, "10:00")
	second := f.book(t, model.AppointmentStatusPending, futureDate, "11:00")

	taken := "10:00"
	_, err := f.svc.Update(ctx, nil, second.ID, &model.UpdateAppointmentRequest{Time: &taken})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSlotConflict))
}

func TestRescheduleKeepsOwnSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	// Changing only the specialization re-validates the slot; the
	// appointment must not conflict with itself.
	spec := "General Medicine"
	updated, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Specialization: &spec})
	require.NoError(t, err)
	assert.Equal(t, "General Medicine", updated.Specialization)
	assert.Equal(t, "10:00", updated.Time)
}

func TestDeleteBlockedByFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	completed := model.AppointmentStatusCompleted
	_, err := f.svc.Update(ctx, nil, appt.ID, &model.UpdateAppointmentRequest{Status: &completed})
	require.NoError(t, err)

	require.NoError(t, f.store.Feedback().Create(ctx, &model.Feedback{
		AppointmentID: appt.ID,
		GivenBy:       model.PersonTypePatient,
		GivenByID:     f.patient.ID,
		ReceiverID:    f.doctor.ID,
		ReceiverType:  model.PersonTypeDoctor,
		Rating:        5,
	}))

	err = f.svc.Delete(ctx, appt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeHasDependentFeedback))

	// Removing the feedback unblocks deletion.
	fbs, err := f.store.Feedback().ListByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	require.NoError(t, f.store.Feedback().Delete(ctx, fbs[0].ID))

	require.NoError(t, f.svc.Delete(ctx, appt.ID))
	_, err = f.svc.Get(ctx, nil, appt.ID)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestPatientListScopedToSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &model.Patient{Name: "Vikram Shah", Email: "vikram@example.com", PasswordHash: "x"}
	require.NoError(t, f.store.Patients().Create(ctx, other))

	f.book(t, model.AppointmentStatusPending, futureDate, "10:00")
	_, err := f.svc.Book(ctx, nil, &model.CreateAppointmentRequest{
		PatientID: other.ID,
		DoctorID:  f.doctor.ID,
		Date:      futureDate,
		Time:      "11:00",
	})
	require.NoError(t, err)

	claims := &pkgauth.Claims{SubjectID: f.patient.ID, Role: pkgauth.RolePatient}
	list, err := f.svc.List(ctx, claims, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.patient.ID, list[0].PatientID)
}

func TestBookStagesOutboxEvent(t *testing.T) {
	f := newFixture(t)
	f.book(t, model.AppointmentStatusPending, futureDate, "10:00")

	events := f.store.Outbox().Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
}
