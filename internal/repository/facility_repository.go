package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clinsched/rotations-api/internal/models"
)

// FacilityRepository reads the facility capacity catalogue maintained elsewhere.
type FacilityRepository struct {
	db *sqlx.DB
}

// NewFacilityRepository constructs repository.
func NewFacilityRepository(db *sqlx.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// FindByID loads a facility.
func (r *FacilityRepository) FindByID(ctx context.Context, id string) (*models.Facility, error) {
	const query = `SELECT id, name, city FROM facilities WHERE id = $1`
	var facility models.Facility
	if err := r.db.GetContext(ctx, &facility, query, id); err != nil {
		return nil, err
	}
	return &facility, nil
}

// CapacityLimits returns the facility's speciality_id -> limit_capacity table.
func (r *FacilityRepository) CapacityLimits(ctx context.Context, facilityID string) (map[string]int, error) {
	const query = `SELECT facility_id, speciality_id, limit_capacity FROM facility_specialities WHERE facility_id = $1`
	var rows []models.FacilityCapacity
	if err := r.db.SelectContext(ctx, &rows, query, facilityID); err != nil {
		return nil, fmt.Errorf("list facility capacity limits: %w", err)
	}

	limits := make(map[string]int, len(rows))
	for _, row := range rows {
		limits[row.SpecialityID] = row.LimitCapacity
	}
	return limits, nil
}
