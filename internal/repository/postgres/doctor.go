package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/pkg/errors"
)

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, phone, address, expertise, experience, gender,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	doctor.ID = uuid.New()
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = doctor.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Phone,
		doctor.Address,
		doctor.Expertise,
		doctor.Experience,
		doctor.Gender,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, phone, address, expertise, experience, gender,
			   created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, phone = $2, address = $3, expertise = $4,
			experience = $5, gender = $6, updated_at = $7
		WHERE id = $8
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Phone,
		doctor.Address,
		doctor.Expertise,
		doctor.Experience,
		doctor.Gender,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("doctor", nil)
	}
	return nil
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("doctor", nil)
	}
	return nil
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, phone, address, expertise, experience, gender,
			   created_at, updated_at
		FROM doctors
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.SearchTerm != "" {
			query += fmt.Sprintf(" AND (name ILIKE $%d OR expertise ILIKE $%d)", argCount, argCount)
			args = append(args, "%"+filters.SearchTerm+"%")
			argCount++
		}
		if filters.Expertise != "" {
			query += fmt.Sprintf(" AND expertise = $%d", argCount)
			args = append(args, filters.Expertise)
			argCount++
		}
	}

	query += " ORDER BY name ASC"

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) TopRated(ctx context.Context, limit int) ([]*model.DoctorRating, error) {
	query := `
		SELECT d.id, d.name, d.phone, d.address, d.expertise, d.experience,
			   d.gender, d.created_at, d.updated_at,
			   COALESCE(AVG(f.rating), 0) AS avg_rating,
			   COUNT(f.id) AS review_count
		FROM doctors d
		LEFT JOIN feedback f ON f.receiver_id = d.id AND f.receiver_type = 'Doctor'
		GROUP BY d.id
		ORDER BY avg_rating DESC, review_count DESC
		LIMIT $1
	`
	var ratings []*model.DoctorRating
	if err := r.db.SelectContext(ctx, &ratings, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list top rated doctors: %w", err)
	}
	return ratings, nil
}

func (r *doctorRepository) CountAppointments(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count doctor appointments: %w", err)
	}
	return count, nil
}
