package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medisched/hms-api/internal/model"
	"github.com/medisched/hms-api/pkg/errors"
)

// detailColumns joins the appointment with denormalized patient and
// doctor summaries, matching what the portals render.
const detailColumns = `
	a.id, a.patient_id, a.doctor_id, a.specialization, a.date, a.time, a.status,
	a.created_at, a.updated_at,
	p.id AS p_id, p.name AS p_name, p.blood_group AS p_blood_group,
	p.email AS p_email, p.phone AS p_phone,
	d.id AS d_id, d.name AS d_name, d.expertise AS d_expertise, d.phone AS d_phone
`

const detailFrom = `
	FROM appointments a
	JOIN patients p ON a.patient_id = p.id
	JOIN doctors d ON a.doctor_id = d.id
`

type appointmentDetailRow struct {
	model.Appointment
	model.PatientSummary
	model.DoctorSummary
}

func (row *appointmentDetailRow) toDetail() *model.AppointmentDetail {
	return &model.AppointmentDetail{
		Appointment: row.Appointment,
		Patient:     row.PatientSummary,
		Doctor:      row.DoctorSummary,
	}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO appointments (
				id, patient_id, doctor_id, specialization, date, time, status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := tx.ExecContext(ctx, query,
			appt.ID,
			appt.PatientID,
			appt.DoctorID,
			appt.Specialization,
			appt.Date,
			appt.Time,
			appt.Status,
			appt.CreatedAt,
			appt.UpdatedAt,
		); err != nil {
			return err
		}

		if appt.Status == model.AppointmentStatusConfirmed {
			return insertScheduleRow(ctx, tx, appt.ID)
		}
		return nil
	})
	if err != nil {
		if conv := translateSlotConflict(err, "The doctor", appt.Date, appt.Time); conv != err {
			return conv
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, specialization, date, time, status,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := `SELECT ` + detailColumns + detailFrom + ` WHERE a.id = $1`

	var row appointmentDetailRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return row.toDetail(), nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	appt.UpdatedAt = time.Now()

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE appointments
			SET patient_id = $1, doctor_id = $2, specialization = $3,
				date = $4, time = $5, status = $6, updated_at = $7
			WHERE id = $8
		`
		result, err := tx.ExecContext(ctx, query,
			appt.PatientID,
			appt.DoctorID,
			appt.Specialization,
			appt.Date,
			appt.Time,
			appt.Status,
			appt.UpdatedAt,
			appt.ID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.NewNotFound("appointment", nil)
		}

		return syncScheduleRow(ctx, tx, appt.ID, appt.Status)
	})
	if err != nil {
		if conv := translateSlotConflict(err, "The doctor", appt.Date, appt.Time); conv != err {
			return conv
		}
		if errors.IsCode(err, errors.CodeNotFound) {
			return err
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`,
			status, time.Now(), id,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.NewNotFound("appointment", nil)
		}

		return syncScheduleRow(ctx, tx, id, status)
	})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return err
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE appointment_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.NewNotFound("appointment", nil)
		}
		return nil
	})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	query := `SELECT ` + detailColumns + detailFrom + ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.DoctorID != nil {
			query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
			args = append(args, *filters.DoctorID)
			argCount++
		}
		if filters.PatientID != nil {
			query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
			args = append(args, *filters.PatientID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND a.status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.Date != "" {
			query += fmt.Sprintf(" AND a.date = $%d", argCount)
			args = append(args, filters.Date)
			argCount++
		}
	}

	query += " ORDER BY a.date DESC, a.time DESC"

	var rows []appointmentDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	details := make([]*model.AppointmentDetail, 0, len(rows))
	for i := range rows {
		details = append(details, rows[i].toDetail())
	}
	return details, nil
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*model.AppointmentDetail, error) {
	query := `SELECT ` + detailColumns + detailFrom + `
		WHERE a.date >= $1 AND a.status = 'Confirmed'
		ORDER BY a.date ASC, a.time ASC
		LIMIT $2`

	var rows []appointmentDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, fromDate, limit); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}

	details := make([]*model.AppointmentDetail, 0, len(rows))
	for i := range rows {
		details = append(details, rows[i].toDetail())
	}
	return details, nil
}

func (r *appointmentRepository) IsSlotTaken(ctx context.Context, doctorID uuid.UUID, date, timeSlot string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND time = $3
			AND status IN ('Pending', 'Confirmed')
	`
	args := []interface{}{doctorID, date, timeSlot}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, args...); err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}
	return taken, nil
}

func (r *appointmentRepository) HasSchedule(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE appointment_id = $1)`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check schedule: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) CountOnDate(ctx context.Context, date string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM appointments WHERE date = $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) CountConfirmedFrom(ctx context.Context, fromDate string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM appointments WHERE date >= $1 AND status = 'Confirmed'`, fromDate)
	if err != nil {
		return 0, fmt.Errorf("failed to count upcoming appointments: %w", err)
	}
	return count, nil
}

// insertScheduleRow adds the Confirmed projection row, tolerating an
// existing one.
func insertScheduleRow(ctx context.Context, tx *sqlx.Tx, appointmentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO schedules (appointment_id, patient_id)
		SELECT id, patient_id FROM appointments WHERE id = $1
		ON CONFLICT (appointment_id) DO NOTHING
	`, appointmentID)
	return err
}

// syncScheduleRow keeps the projection consistent with the status:
// present iff Confirmed.
func syncScheduleRow(ctx context.Context, tx *sqlx.Tx, appointmentID uuid.UUID, status model.AppointmentStatus) error {
	if status == model.AppointmentStatusConfirmed {
		return insertScheduleRow(ctx, tx, appointmentID)
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE appointment_id = $1`, appointmentID)
	return err
}
