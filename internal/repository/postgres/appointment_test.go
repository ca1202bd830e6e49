package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestIsSlotTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	doctorID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(doctorID, "2026-10-01", "10:00").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.IsSlotTaken(context.Background(), doctorID, "2026-10-01", "10:00", nil)
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSlotTakenExcludesOwnID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	doctorID := uuid.New()
	ownID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(doctorID, "2026-10-01", "10:00", ownID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := repo.IsSlotTaken(context.Background(), doctorID, "2026-10-01", "10:00", &ownID)
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolationToSlotConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO appointments`).
		WillReturnError(&pq.Error{
			Code:       "23505",
			Constraint: activeSlotConstraint,
		})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      "2026-10-01",
		Time:      "10:00",
		Status:    model.AppointmentStatusPending,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSlotConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConfirmedInsertsScheduleRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO appointments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      "2026-10-01",
		Time:      "10:00",
		Status:    model.AppointmentStatusConfirmed,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusSyncsSchedule(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	id := uuid.New()

	// Confirming inserts the projection row.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE appointments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), id, model.AppointmentStatusConfirmed))

	// Cancelling removes it.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE appointments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), id, model.AppointmentStatusCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE appointments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), uuid.New(), model.AppointmentStatusConfirmed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesScheduleFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM appointments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(`SELECT id, patient_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
