package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medisched/hms-api/pkg/errors"
)

// activeSlotConstraint is the partial unique index over
// (doctor_id, date, time) filtered to active statuses. A violation
// means a racing request already took the slot.
const activeSlotConstraint = "appointments_active_slot_idx"

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// translateSlotConflict turns an active-slot unique violation into the
// domain SlotConflict error so racing inserts fail the same way a
// pre-checked conflict does.
func translateSlotConflict(err error, doctorName, date, timeSlot string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == activeSlotConstraint {
			return errors.NewSlotConflict(doctorName, date, timeSlot)
		}
	}
	return err
}
