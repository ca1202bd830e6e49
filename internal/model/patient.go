package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BloodGroup   string    `db:"blood_group" json:"blood_group"`
	DOB          string    `db:"dob" json:"dob"`
	Address      string    `db:"address" json:"address"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type CreatePatientRequest struct {
	Name       string `json:"name" binding:"required,min=2"`
	BloodGroup string `json:"bloodGroup"`
	DOB        string `json:"dob" validate:"omitempty,calendardate"`
	Address    string `json:"address"`
	Phone      string `json:"phone" binding:"required,len=10,numeric"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
}

type UpdatePatientRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=2"`
	BloodGroup *string `json:"bloodGroup"`
	DOB        *string `json:"dob" validate:"omitempty,calendardate"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone" binding:"omitempty,len=10,numeric"`
	Email      *string `json:"email" binding:"omitempty,email"`
}

type PatientFilters struct {
	SearchTerm string
}
