package model

import "github.com/google/uuid"

// Schedule is a derived projection linking patients to their Confirmed
// appointments. It is never written directly; the appointment
// repository maintains it in the same transaction as status changes.
type Schedule struct {
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
}
