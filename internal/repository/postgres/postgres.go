package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medisched/hms-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type feedbackRepository struct {
	BaseRepository
}

type adminRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewFeedbackRepository(db *sqlx.DB) repository.FeedbackRepository {
	return &feedbackRepository{NewBaseRepository(db)}
}

func NewAdminRepository(db *sqlx.DB) repository.AdminRepository {
	return &adminRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
