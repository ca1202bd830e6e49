package model

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Phone      string    `db:"phone" json:"phone"`
	Address    string    `db:"address" json:"address"`
	Expertise  string    `db:"expertise" json:"expertise"`
	Experience int       `db:"experience" json:"experience"`
	Gender     string    `db:"gender" json:"gender"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type CreateDoctorRequest struct {
	Name       string `json:"name" binding:"required,min=2"`
	Phone      string `json:"phone" binding:"required,len=10,numeric"`
	Address    string `json:"address"`
	Expertise  string `json:"expertise" binding:"required,min=2"`
	Experience int    `json:"experience" binding:"min=0"`
	Gender     string `json:"gender"`
}

type UpdateDoctorRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=2"`
	Phone      *string `json:"phone" binding:"omitempty,len=10,numeric"`
	Address    *string `json:"address"`
	Expertise  *string `json:"expertise" binding:"omitempty,min=2"`
	Experience *int    `json:"experience" binding:"omitempty,min=0"`
	Gender     *string `json:"gender"`
}

// DoctorRating aggregates feedback received by a doctor.
type DoctorRating struct {
	Doctor
	AvgRating   float64 `db:"avg_rating" json:"avgRating"`
	ReviewCount int     `db:"review_count" json:"reviewCount"`
}

type DoctorFilters struct {
	SearchTerm string
	Expertise  string
}
