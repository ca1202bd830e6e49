package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/pkg/errors"
)

const feedbackColumns = `
	id, appointment_id, given_by, given_by_id, receiver_id, receiver_type,
	rating, comments, created_at
`

func (r *feedbackRepository) Create(ctx context.Context, fb *model.Feedback) error {
	query := `
		INSERT INTO feedback (
			id, appointment_id, given_by, given_by_id, receiver_id,
			receiver_type, rating, comments, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	fb.ID = uuid.New()
	fb.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		fb.ID,
		fb.AppointmentID,
		fb.GivenBy,
		fb.GivenByID,
		fb.ReceiverID,
		fb.ReceiverType,
		fb.Rating,
		fb.Comments,
		fb.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return errors.NewDuplicateFeedback()
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) Get(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`

	var fb model.Feedback
	err := r.db.GetContext(ctx, &fb, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("feedback", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return &fb, nil
}

func (r *feedbackRepository) Update(ctx context.Context, fb *model.Feedback) error {
	query := `UPDATE feedback SET rating = $1, comments = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, fb.Rating, fb.Comments, fb.ID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("feedback", nil)
	}
	return nil
}

func (r *feedbackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("feedback", nil)
	}
	return nil
}

func (r *feedbackRepository) List(ctx context.Context) ([]*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback ORDER BY created_at DESC`

	var fbs []*model.Feedback
	if err := r.db.SelectContext(ctx, &fbs, query); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return fbs, nil
}

func (r *feedbackRepository) ListRecent(ctx context.Context, limit int) ([]*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback ORDER BY created_at DESC LIMIT $1`

	var fbs []*model.Feedback
	if err := r.db.SelectContext(ctx, &fbs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent feedback: %w", err)
	}
	return fbs, nil
}

func (r *feedbackRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE appointment_id = $1 ORDER BY created_at DESC`

	var fbs []*model.Feedback
	if err := r.db.SelectContext(ctx, &fbs, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list feedback by appointment: %w", err)
	}
	return fbs, nil
}

func (r *feedbackRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Feedback, error) {
	query := `
		SELECT f.id, f.appointment_id, f.given_by, f.given_by_id, f.receiver_id,
			   f.receiver_type, f.rating, f.comments, f.created_at
		FROM feedback f
		JOIN appointments a ON f.appointment_id = a.id
		WHERE a.patient_id = $1
		ORDER BY f.created_at DESC
	`
	var fbs []*model.Feedback
	if err := r.db.SelectContext(ctx, &fbs, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list feedback by patient: %w", err)
	}
	return fbs, nil
}

func (r *feedbackRepository) Exists(ctx context.Context, appointmentID uuid.UUID, givenBy model.PersonType, givenByID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM feedback
			WHERE appointment_id = $1 AND given_by = $2 AND given_by_id = $3
		)
	`, appointmentID, givenBy, givenByID)
	if err != nil {
		return false, fmt.Errorf("failed to check feedback existence: %w", err)
	}
	return exists, nil
}

func (r *feedbackRepository) CountByAppointment(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM feedback WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

func (r *feedbackRepository) AverageRating(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.GetContext(ctx, &avg,
		`SELECT COALESCE(AVG(rating), 0) FROM feedback`)
	if err != nil {
		return 0, fmt.Errorf("failed to get average rating: %w", err)
	}
	return avg, nil
}
