package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
)

// All repository interfaces in one file
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		CountAppointments(ctx context.Context, patientID uuid.UUID) (int, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
		TopRated(ctx context.Context, limit int) ([]*model.DoctorRating, error)
		CountAppointments(ctx context.Context, doctorID uuid.UUID) (int, error)
	}

	// AppointmentRepository owns both the appointments table and the
	// schedules projection: every mutation that changes Confirmed
	// membership syncs the projection inside the same transaction.
	AppointmentRepository interface {
		// Create inserts the appointment and, when it starts out
		// Confirmed, the schedule row. A racing insert into an occupied
		// active slot returns a SlotConflict error via the partial
		// unique index.
		Create(ctx context.Context, appt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		// Update rewrites the mutable fields and syncs the schedule
		// projection to the (possibly changed) status.
		Update(ctx context.Context, appt *model.Appointment) error
		// UpdateStatus is the fast path for status-only changes.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error)
		ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*model.AppointmentDetail, error)
		// IsSlotTaken is the availability check: any Pending/Confirmed
		// appointment on the triple, optionally excluding one id.
		IsSlotTaken(ctx context.Context, doctorID uuid.UUID, date, timeSlot string, excludeID *uuid.UUID) (bool, error)
		HasSchedule(ctx context.Context, appointmentID uuid.UUID) (bool, error)
		CountOnDate(ctx context.Context, date string) (int, error)
		CountConfirmedFrom(ctx context.Context, fromDate string) (int, error)
	}

	FeedbackRepository interface {
		Create(ctx context.Context, fb *model.Feedback) error
		Get(ctx context.Context, id uuid.UUID) (*model.Feedback, error)
		Update(ctx context.Context, fb *model.Feedback) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Feedback, error)
		ListRecent(ctx context.Context, limit int) ([]*model.Feedback, error)
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Feedback, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Feedback, error)
		Exists(ctx context.Context, appointmentID uuid.UUID, givenBy model.PersonType, givenByID uuid.UUID) (bool, error)
		CountByAppointment(ctx context.Context, appointmentID uuid.UUID) (int, error)
		AverageRating(ctx context.Context) (float64, error)
	}

	AdminRepository interface {
		Create(ctx context.Context, admin *model.Admin) error
		GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	}

	OutboxRepository interface {
		CreateEvent(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		IncrementRetry(ctx context.Context, id uuid.UUID) error
		DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
