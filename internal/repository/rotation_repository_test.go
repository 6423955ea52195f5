package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsched/rotations-api/internal/models"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

func newRotationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func rotationRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "group_id", "facility_id", "semester", "start_date", "finish_date", "state", "created_at", "updated_at"}).
		AddRow(id, "grp-1", "fac-1", 7,
			time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC),
			true, now, now)
}

func TestRotationRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, group_id, facility_id")).
		WithArgs("rot-1").
		WillReturnRows(rotationRows("rot-1"))

	rotation, err := repo.FindByID(context.Background(), "rot-1")
	require.NoError(t, err)
	assert.Equal(t, "rot-1", rotation.ID)
	assert.Equal(t, "grp-1", rotation.GroupID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryCreateWithSpecialities(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rotations")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rotations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rotation_specialities")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rotation_specialities")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rotation := &models.Rotation{
		GroupID:    "grp-1",
		FacilityID: "fac-1",
		Semester:   7,
		StartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		FinishDate: time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC),
		State:      true,
	}
	specs := []models.RotationSpeciality{
		{SpecialityID: "cardio", ProfessorID: "prof-1", AvailableCapacity: 2, NumberWeeks: 1},
		{SpecialityID: "pedia", ProfessorID: "prof-2", AvailableCapacity: 4, NumberWeeks: 1},
	}

	require.NoError(t, repo.CreateWithSpecialities(context.Background(), rotation, specs))
	assert.NotEmpty(t, rotation.ID)
	assert.Equal(t, rotation.ID, specs[0].RotationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryCreateOverlapRefused(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rotations")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rot-existing"))
	mock.ExpectRollback()

	rotation := &models.Rotation{GroupID: "grp-1", FacilityID: "fac-1"}
	err := repo.CreateWithSpecialities(context.Background(), rotation, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRotation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryUpdateWithSpecialities(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotations SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotation_specialities SET")).
		WithArgs("prof-9", 3, 1, "rot-1", "cardio").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_specialities WHERE rotation_id =")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rotation_specialities")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rotation := &models.Rotation{ID: "rot-1", GroupID: "grp-1", FacilityID: "fac-1", Semester: 7}
	diff := SpecialityDiff{
		Update: []models.RotationSpeciality{{SpecialityID: "cardio", ProfessorID: "prof-9", AvailableCapacity: 3, NumberWeeks: 1}},
		Delete: []string{"pedia"},
		Create: []models.RotationSpeciality{{SpecialityID: "derma", ProfessorID: "prof-3", AvailableCapacity: 1, NumberWeeks: 1}},
	}

	require.NoError(t, repo.UpdateWithSpecialities(context.Background(), rotation, diff))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotations SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateWithSpecialities(context.Background(), &models.Rotation{ID: "missing"}, SpecialityDiff{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_dates")).
		WithArgs("rot-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_specialities")).
		WithArgs("rot-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotations")).
		WithArgs("rot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "rot-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_dates")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_specialities")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryListPaginated(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rotations")).
		WithArgs("grp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, group_id, facility_id")).
		WithArgs("grp-1", 10, 10).
		WillReturnRows(rotationRows("rot-11"))

	rotations, total, err := repo.ListPaginated(context.Background(), models.RotationFilter{GroupID: "grp-1", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, rotations, 1)
	assert.Equal(t, "rot-11", rotations[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryExistsGroupCollision(t *testing.T) {
	db, mock, cleanup := newRotationRepoMock(t)
	defer cleanup()

	repo := NewRotationRepository(db)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	finish := time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rotations")).
		WithArgs("grp-1", start, finish, "rot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rot-2"))

	collides, err := repo.ExistsGroupCollision(context.Background(), "grp-1", start, finish, "rot-1")
	require.NoError(t, err)
	assert.True(t, collides)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rotations")).
		WillReturnError(sql.ErrNoRows)

	collides, err = repo.ExistsGroupCollision(context.Background(), "grp-1", start, finish, "rot-1")
	require.NoError(t, err)
	assert.False(t, collides)
	require.NoError(t, mock.ExpectationsWereMet())
}
