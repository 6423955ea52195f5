package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFacilityRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newFacilityRepoMock(t)
	defer cleanup()

	repo := NewFacilityRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "city"}).
		AddRow("fac-1", "University Hospital", "Quito")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, city FROM facilities")).
		WithArgs("fac-1").
		WillReturnRows(rows)

	facility, err := repo.FindByID(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.Equal(t, "University Hospital", facility.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityRepositoryCapacityLimits(t *testing.T) {
	db, mock, cleanup := newFacilityRepoMock(t)
	defer cleanup()

	repo := NewFacilityRepository(db)
	rows := sqlmock.NewRows([]string{"facility_id", "speciality_id", "limit_capacity"}).
		AddRow("fac-1", "cardio", 2).
		AddRow("fac-1", "pedia", 4)
	mock.ExpectQuery(regexp.QuoteMeta("FROM facility_specialities")).
		WithArgs("fac-1").
		WillReturnRows(rows)

	limits, err := repo.CapacityLimits(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cardio": 2, "pedia": 4}, limits)
	require.NoError(t, mock.ExpectationsWereMet())
}
