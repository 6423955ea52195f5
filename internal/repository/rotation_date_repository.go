package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinsched/rotations-api/internal/models"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

// RotationDateRepository persists per-student weekly placements.
type RotationDateRepository struct {
	db *sqlx.DB
}

// NewRotationDateRepository constructs repository.
func NewRotationDateRepository(db *sqlx.DB) *RotationDateRepository {
	return &RotationDateRepository{db: db}
}

const rotationDateColumns = `id, rotation_id, rotation_speciality_id, student_user_id, start_date, finish_date, created_at`

// ListByRotationStudent returns the placements a student already holds on a rotation.
func (r *RotationDateRepository) ListByRotationStudent(ctx context.Context, rotationID, studentUserID string) ([]models.RotationDate, error) {
	query := `SELECT ` + rotationDateColumns + ` FROM rotation_dates
WHERE rotation_id = $1 AND student_user_id = $2 ORDER BY start_date, id`
	var dates []models.RotationDate
	if err := r.db.SelectContext(ctx, &dates, query, rotationID, studentUserID); err != nil {
		return nil, fmt.Errorf("list student rotation dates: %w", err)
	}
	return dates, nil
}

// CountBySlot counts placements occupying the exact slot of a rotation speciality.
func (r *RotationDateRepository) CountBySlot(ctx context.Context, rotationSpecialityID string, start, finish time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM rotation_dates
WHERE rotation_speciality_id = $1 AND start_date = $2 AND finish_date = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, rotationSpecialityID, start, finish); err != nil {
		return 0, fmt.Errorf("count slot placements: %w", err)
	}
	return count, nil
}

// CreateAll inserts one placement per entry inside a single transaction.
// The referenced speciality rows are locked while the slot occupancy is
// re-counted, so concurrent assignments cannot race past the capacity check;
// nothing is committed when any entry no longer fits.
func (r *RotationDateRepository) CreateAll(ctx context.Context, dates []models.RotationDate) (err error) {
	if len(dates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range dates {
		var capacity int
		const lockQuery = `SELECT available_capacity FROM rotation_specialities WHERE id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &capacity, lockQuery, dates[i].RotationSpecialityID); err != nil {
			return fmt.Errorf("lock rotation speciality %s: %w", dates[i].RotationSpecialityID, err)
		}

		var used int
		const countQuery = `SELECT COUNT(*) FROM rotation_dates
WHERE rotation_speciality_id = $1 AND start_date = $2 AND finish_date = $3`
		if err = tx.GetContext(ctx, &used, countQuery, dates[i].RotationSpecialityID, dates[i].StartDate, dates[i].FinishDate); err != nil {
			return fmt.Errorf("recount slot placements: %w", err)
		}
		if used >= capacity {
			err = appErrors.Clone(appErrors.ErrNoCapacity, "a requested speciality slot has no remaining capacity")
			return err
		}

		if dates[i].ID == "" {
			dates[i].ID = uuid.NewString()
		}
		dates[i].CreatedAt = now

		const insertQuery = `INSERT INTO rotation_dates (id, rotation_id, rotation_speciality_id, student_user_id, start_date, finish_date, created_at)
VALUES (:id, :rotation_id, :rotation_speciality_id, :student_user_id, :start_date, :finish_date, :created_at)`
		if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, dates[i]); err != nil {
			return fmt.Errorf("insert rotation date: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment create: %w", err)
	}
	return nil
}

// SlotUpdate rewrites the window of one existing placement.
type SlotUpdate struct {
	RotationDateID string
	StartDate      time.Time
	FinishDate     time.Time
}

// UpdateSlots overwrites the windows of existing placements atomically.
func (r *RotationDateRepository) UpdateSlots(ctx context.Context, updates []SlotUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, update := range updates {
		const query = `UPDATE rotation_dates SET start_date = $1, finish_date = $2 WHERE id = $3`
		if _, err = tx.ExecContext(ctx, query, update.StartDate, update.FinishDate, update.RotationDateID); err != nil {
			return fmt.Errorf("update rotation date %s: %w", update.RotationDateID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment update: %w", err)
	}
	return nil
}

// ListScheduleByStudent returns a student's placements joined with speciality names.
func (r *RotationDateRepository) ListScheduleByStudent(ctx context.Context, rotationID, studentUserID string) ([]models.StudentScheduleDate, error) {
	const query = `SELECT rd.id AS rotation_date_id, rs.speciality_id, s.name AS speciality_name, rd.start_date, rd.finish_date
FROM rotation_dates rd
JOIN rotation_specialities rs ON rs.id = rd.rotation_speciality_id
JOIN specialities s ON s.id = rs.speciality_id
WHERE rd.rotation_id = $1 AND rd.student_user_id = $2
ORDER BY rd.rotation_speciality_id ASC`
	var dates []models.StudentScheduleDate
	if err := r.db.SelectContext(ctx, &dates, query, rotationID, studentUserID); err != nil {
		return nil, fmt.Errorf("list student schedule: %w", err)
	}
	return dates, nil
}
