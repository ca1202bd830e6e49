package model

import (
	"time"

	"github.com/google/uuid"
)

// PersonType distinguishes the two kinds of feedback participants.
type PersonType string

const (
	PersonTypePatient PersonType = "Patient"
	PersonTypeDoctor  PersonType = "Doctor"
)

func (p PersonType) Valid() bool {
	return p == PersonTypePatient || p == PersonTypeDoctor
}

type Feedback struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	GivenBy       PersonType `db:"given_by" json:"given_by"`
	GivenByID     uuid.UUID  `db:"given_by_id" json:"given_by_id"`
	ReceiverID    uuid.UUID  `db:"receiver_id" json:"receiver_id"`
	ReceiverType  PersonType `db:"receiver_type" json:"receiver_type"`
	Rating        int        `db:"rating" json:"rating"`
	Comments      string     `db:"comments" json:"comments"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// FeedbackDetail includes the appointment the feedback refers to.
type FeedbackDetail struct {
	Feedback
	Appointment AppointmentDetail `json:"appointment"`
}

type CreateFeedbackRequest struct {
	AppointmentID uuid.UUID  `json:"appointmentId" binding:"required"`
	GivenBy       PersonType `json:"givenBy" binding:"required"`
	GivenByID     uuid.UUID  `json:"givenById" binding:"required"`
	ReceiverID    uuid.UUID  `json:"receiverId" binding:"required"`
	ReceiverType  PersonType `json:"receiverType" binding:"required"`
	Rating        int        `json:"rating" binding:"required"`
	Comments      string     `json:"comments"`
}

// UpdateFeedbackRequest allows editing rating and comments only.
type UpdateFeedbackRequest struct {
	Rating   *int    `json:"rating"`
	Comments *string `json:"comments"`
}
