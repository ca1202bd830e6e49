package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// statusTransitions is the authoritative transition table. Completed
// and Cancelled are terminal.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

func (s AppointmentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsActive reports whether an appointment in this status occupies its
// (doctor, date, time) slot.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment holds a booked slot. Date is a calendar date ("2006-01-02")
// and Time a wall-clock slot ("15:04"); both are compared as opaque
// equality keys. Specialization is a snapshot of the doctor's expertise
// at booking time and is not updated when the doctor record changes.
type Appointment struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Specialization string            `db:"specialization" json:"specialization"`
	Date           string            `db:"date" json:"date"`
	Time           string            `db:"time" json:"time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// PatientSummary is the denormalized patient block embedded in
// appointment responses.
type PatientSummary struct {
	ID         uuid.UUID `db:"p_id" json:"id"`
	Name       string    `db:"p_name" json:"name"`
	BloodGroup string    `db:"p_blood_group" json:"blood_group"`
	Email      string    `db:"p_email" json:"email"`
	Phone      string    `db:"p_phone" json:"phone"`
}

type DoctorSummary struct {
	ID        uuid.UUID `db:"d_id" json:"id"`
	Name      string    `db:"d_name" json:"name"`
	Expertise string    `db:"d_expertise" json:"expertise"`
	Phone     string    `db:"d_phone" json:"phone"`
}

// AppointmentDetail joins the appointment with its patient and doctor
// summaries.
type AppointmentDetail struct {
	Appointment
	Patient PatientSummary `json:"patient"`
	Doctor  DoctorSummary  `json:"doctor"`
}

type CreateAppointmentRequest struct {
	PatientID      uuid.UUID         `json:"patientId" binding:"required"`
	DoctorID       uuid.UUID         `json:"doctorId" binding:"required"`
	Specialization string            `json:"specialization"`
	Date           string            `json:"date" binding:"required" validate:"calendardate"`
	Time           string            `json:"time" binding:"required" validate:"slottime"`
	Status         AppointmentStatus `json:"status"`
}

// UpdateAppointmentRequest carries a partial edit. A request with only
// Status set takes the fast-path status update.
type UpdateAppointmentRequest struct {
	PatientID      *uuid.UUID         `json:"patientId"`
	DoctorID       *uuid.UUID         `json:"doctorId"`
	Specialization *string            `json:"specialization"`
	Date           *string            `json:"date" validate:"omitempty,calendardate"`
	Time           *string            `json:"time" validate:"omitempty,slottime"`
	Status         *AppointmentStatus `json:"status"`
}

// StatusOnly reports whether the update is a bare status change.
func (r *UpdateAppointmentRequest) StatusOnly() bool {
	return r.Status != nil &&
		r.PatientID == nil && r.DoctorID == nil &&
		r.Specialization == nil && r.Date == nil && r.Time == nil
}

type AppointmentFilters struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    AppointmentStatus
	Date      string
}
