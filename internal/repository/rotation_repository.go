package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinsched/rotations-api/internal/models"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

// RotationRepository persists rotations and their speciality children.
type RotationRepository struct {
	db *sqlx.DB
}

// NewRotationRepository constructs repository.
func NewRotationRepository(db *sqlx.DB) *RotationRepository {
	return &RotationRepository{db: db}
}

const rotationColumns = `id, group_id, facility_id, semester, start_date, finish_date, state, created_at, updated_at`

// FindByID loads a rotation by its identifier.
func (r *RotationRepository) FindByID(ctx context.Context, id string) (*models.Rotation, error) {
	query := `SELECT ` + rotationColumns + ` FROM rotations WHERE id = $1`
	var rotation models.Rotation
	if err := r.db.GetContext(ctx, &rotation, query, id); err != nil {
		return nil, err
	}
	return &rotation, nil
}

// FindDetailByID loads a rotation together with its specialities and dates.
func (r *RotationRepository) FindDetailByID(ctx context.Context, id string) (*models.RotationDetail, error) {
	rotation, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.RotationDetail{Rotation: *rotation}

	const specQuery = `SELECT id, rotation_id, speciality_id, professor_id, available_capacity, number_weeks, created_at
FROM rotation_specialities WHERE rotation_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &detail.Specialities, specQuery, id); err != nil {
		return nil, fmt.Errorf("list rotation specialities: %w", err)
	}

	const datesQuery = `SELECT id, rotation_id, rotation_speciality_id, student_user_id, start_date, finish_date, created_at
FROM rotation_dates WHERE rotation_id = $1 ORDER BY start_date, id`
	if err := r.db.SelectContext(ctx, &detail.Dates, datesQuery, id); err != nil {
		return nil, fmt.Errorf("list rotation dates: %w", err)
	}

	return detail, nil
}

// List returns rotations matching the filter ordered by start date.
func (r *RotationRepository) List(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, error) {
	query, args := buildRotationListQuery(filter, false)
	var rotations []models.Rotation
	if err := r.db.SelectContext(ctx, &rotations, query, args...); err != nil {
		return nil, fmt.Errorf("list rotations: %w", err)
	}
	return rotations, nil
}

// ListPaginated returns a page of rotations plus the unpaged total.
func (r *RotationRepository) ListPaginated(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, int, error) {
	countQuery, countArgs := buildRotationListQuery(filter, true)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count rotations: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 10
	}

	query, args := buildRotationListQuery(filter, false)
	query = fmt.Sprintf("%s LIMIT $%d OFFSET $%d", query, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	var rotations []models.Rotation
	if err := r.db.SelectContext(ctx, &rotations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rotations page: %w", err)
	}
	return rotations, total, nil
}

func buildRotationListQuery(filter models.RotationFilter, count bool) (string, []interface{}) {
	query := `SELECT ` + rotationColumns + ` FROM rotations WHERE 1=1`
	if count {
		query = `SELECT COUNT(*) FROM rotations WHERE 1=1`
	}
	args := make([]interface{}, 0, 6)

	add := func(clause string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if filter.GroupID != "" {
		add("group_id =", filter.GroupID)
	}
	if filter.FacilityID != "" {
		add("facility_id =", filter.FacilityID)
	}
	if filter.StartDate != nil {
		add("start_date =", *filter.StartDate)
	}
	if filter.FinishDate != nil {
		add("finish_date =", *filter.FinishDate)
	}
	if filter.Semester > 0 {
		add("semester =", filter.Semester)
	}
	if filter.State != nil {
		add("state =", *filter.State)
	}

	if !count {
		query += " ORDER BY start_date ASC"
	}
	return query, args
}

// CreateWithSpecialities inserts a rotation and its speciality rows in one
// transaction. The overlap existence check runs inside the same transaction
// so two concurrent creates for the same group and window cannot both pass.
func (r *RotationRepository) CreateWithSpecialities(ctx context.Context, rotation *models.Rotation, specialities []models.RotationSpeciality) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const overlapQuery = `SELECT id FROM rotations
WHERE facility_id = $1 AND group_id = $2
  AND ((start_date <= $3 AND finish_date >= $3) OR (start_date <= $4 AND finish_date >= $4))
LIMIT 1`
	var existingID string
	err = tx.GetContext(ctx, &existingID, overlapQuery, rotation.FacilityID, rotation.GroupID, rotation.StartDate, rotation.FinishDate)
	if err == nil {
		err = appErrors.Clone(appErrors.ErrDuplicateRotation, "a rotation already exists for the selected group and dates")
		return err
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check overlapping rotation: %w", err)
	}

	now := time.Now().UTC()
	if rotation.ID == "" {
		rotation.ID = uuid.NewString()
	}
	rotation.CreatedAt = now
	rotation.UpdatedAt = now

	const insertQuery = `INSERT INTO rotations (id, group_id, facility_id, semester, start_date, finish_date, state, created_at, updated_at)
VALUES (:id, :group_id, :facility_id, :semester, :start_date, :finish_date, :state, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, rotation); err != nil {
		return fmt.Errorf("insert rotation: %w", err)
	}

	for i := range specialities {
		specialities[i].RotationID = rotation.ID
		if err = insertSpeciality(ctx, tx, &specialities[i], now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotation create: %w", err)
	}
	return nil
}

func insertSpeciality(ctx context.Context, tx *sqlx.Tx, spec *models.RotationSpeciality, now time.Time) error {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	spec.CreatedAt = now
	const query = `INSERT INTO rotation_specialities (id, rotation_id, speciality_id, professor_id, available_capacity, number_weeks, created_at)
VALUES (:id, :rotation_id, :speciality_id, :professor_id, :available_capacity, :number_weeks, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, spec); err != nil {
		return fmt.Errorf("insert rotation speciality %s: %w", spec.SpecialityID, err)
	}
	return nil
}

// SpecialityDiff carries the speciality changes applied by an update.
type SpecialityDiff struct {
	Create []models.RotationSpeciality
	Update []models.RotationSpeciality
	Delete []string
}

// UpdateWithSpecialities persists the rotation fields and applies the
// speciality diff atomically.
func (r *RotationRepository) UpdateWithSpecialities(ctx context.Context, rotation *models.Rotation, diff SpecialityDiff) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	rotation.UpdatedAt = now

	const updateQuery = `UPDATE rotations SET group_id = :group_id, facility_id = :facility_id, semester = :semester,
start_date = :start_date, finish_date = :finish_date, state = :state, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, tx, updateQuery, rotation)
	if err != nil {
		return fmt.Errorf("update rotation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotation rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	for i := range diff.Update {
		const specUpdate = `UPDATE rotation_specialities SET professor_id = $1, available_capacity = $2, number_weeks = $3
WHERE rotation_id = $4 AND speciality_id = $5`
		if _, err = tx.ExecContext(ctx, specUpdate, diff.Update[i].ProfessorID, diff.Update[i].AvailableCapacity,
			diff.Update[i].NumberWeeks, rotation.ID, diff.Update[i].SpecialityID); err != nil {
			return fmt.Errorf("update rotation speciality %s: %w", diff.Update[i].SpecialityID, err)
		}
	}

	if len(diff.Delete) > 0 {
		query, args, inErr := sqlx.In(`DELETE FROM rotation_specialities WHERE rotation_id = ? AND speciality_id IN (?)`, rotation.ID, diff.Delete)
		if inErr != nil {
			err = fmt.Errorf("build speciality delete: %w", inErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("delete rotation specialities: %w", err)
		}
	}

	for i := range diff.Create {
		diff.Create[i].RotationID = rotation.ID
		if err = insertSpeciality(ctx, tx, &diff.Create[i], now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotation update: %w", err)
	}
	return nil
}

// Delete removes a rotation cascading through its dates and specialities.
func (r *RotationRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rotation_dates WHERE rotation_id = $1`, id); err != nil {
		return fmt.Errorf("delete rotation dates: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM rotation_specialities WHERE rotation_id = $1`, id); err != nil {
		return fmt.Errorf("delete rotation specialities: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM rotations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rotation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotation delete rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotation delete: %w", err)
	}
	return nil
}

// ExistsGroupCollision reports whether another rotation holds the same group
// and window combination, ignoring excludeID.
func (r *RotationRepository) ExistsGroupCollision(ctx context.Context, groupID string, start, finish time.Time, excludeID string) (bool, error) {
	const query = `SELECT id FROM rotations
WHERE group_id = $1 AND start_date = $2 AND finish_date = $3 AND id <> $4 LIMIT 1`
	var id string
	err := r.db.GetContext(ctx, &id, query, groupID, start, finish, excludeID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check group collision: %w", err)
	}
	return true, nil
}

// ListByGroup returns the compact rotation windows of a group.
func (r *RotationRepository) ListByGroup(ctx context.Context, groupID string) ([]models.GroupRotation, error) {
	const query = `SELECT id, start_date, finish_date FROM rotations WHERE group_id = $1 ORDER BY start_date ASC`
	var rotations []models.GroupRotation
	if err := r.db.SelectContext(ctx, &rotations, query, groupID); err != nil {
		return nil, fmt.Errorf("list group rotations: %w", err)
	}
	return rotations, nil
}

// ListUpcomingWindowsByFacility returns facility windows still touching the
// future; the rotation-creation date picker greys these out.
func (r *RotationRepository) ListUpcomingWindowsByFacility(ctx context.Context, facilityID string, from time.Time) ([]models.RotationWindow, error) {
	const query = `SELECT start_date, finish_date FROM rotations
WHERE facility_id = $1 AND (start_date >= $2 OR finish_date >= $2) ORDER BY start_date ASC`
	var windows []models.RotationWindow
	if err := r.db.SelectContext(ctx, &windows, query, facilityID, from); err != nil {
		return nil, fmt.Errorf("list facility windows: %w", err)
	}
	return windows, nil
}

// FindSpecialityByID loads one rotation speciality row.
func (r *RotationRepository) FindSpecialityByID(ctx context.Context, id string) (*models.RotationSpeciality, error) {
	const query = `SELECT id, rotation_id, speciality_id, professor_id, available_capacity, number_weeks, created_at
FROM rotation_specialities WHERE id = $1`
	var spec models.RotationSpeciality
	if err := r.db.GetContext(ctx, &spec, query, id); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ListSpecialitiesByRotation returns the rotation's specialities in stable order.
func (r *RotationRepository) ListSpecialitiesByRotation(ctx context.Context, rotationID string) ([]models.RotationSpeciality, error) {
	const query = `SELECT id, rotation_id, speciality_id, professor_id, available_capacity, number_weeks, created_at
FROM rotation_specialities WHERE rotation_id = $1 ORDER BY created_at, id`
	var specs []models.RotationSpeciality
	if err := r.db.SelectContext(ctx, &specs, query, rotationID); err != nil {
		return nil, fmt.Errorf("list rotation specialities: %w", err)
	}
	return specs, nil
}
