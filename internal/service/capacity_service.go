package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinsched/rotations-api/internal/models"
	"github.com/clinsched/rotations-api/internal/schedule"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

type specialityReader interface {
	FindByID(ctx context.Context, id string) (*models.Rotation, error)
	FindSpecialityByID(ctx context.Context, id string) (*models.RotationSpeciality, error)
	ListSpecialitiesByRotation(ctx context.Context, rotationID string) ([]models.RotationSpeciality, error)
}

type slotCounter interface {
	CountBySlot(ctx context.Context, rotationSpecialityID string, start, finish time.Time) (int, error)
}

type capacityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CapacityService answers the read-side questions driving slot pickers:
// remaining capacity of a slot and the fully booked slots per speciality.
type CapacityService struct {
	rotations specialityReader
	counter   slotCounter
	cache     capacityCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCapacityService constructs CapacityService. A nil cache disables caching.
func NewCapacityService(rotations specialityReader, counter slotCounter, cache capacityCache, cacheTTL time.Duration, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{rotations: rotations, counter: counter, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Available returns the speciality's stamped capacity minus the placements
// occupying the exact slot. The result is deliberately not clamped at zero:
// a negative remainder means overbooking and must stay visible.
func (s *CapacityService) Available(ctx context.Context, rotationSpecialityID string, start, finish time.Time) (int, error) {
	spec, err := s.rotations.FindSpecialityByID(ctx, rotationSpecialityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "rotation speciality not found")
		}
		return 0, storageError(err, "failed to load rotation speciality")
	}

	used, err := s.counter.CountBySlot(ctx, rotationSpecialityID, schedule.Day(start), schedule.Day(finish))
	if err != nil {
		return 0, storageError(err, "failed to count slot placements")
	}
	return spec.AvailableCapacity - used, nil
}

// Partition returns the rotation's weekly slots.
func (s *CapacityService) Partition(ctx context.Context, rotationID string) ([]models.RotationWindow, error) {
	rotation, err := s.rotations.FindByID(ctx, rotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}
	return schedule.Slots(rotation.StartDate, rotation.FinishDate), nil
}

// UsedDates lists, per speciality, the weekly slots whose remaining capacity
// dropped to zero or below, so clients can hide them from pickers.
func (s *CapacityService) UsedDates(ctx context.Context, rotationID string) ([]models.SpecialityUsedDates, error) {
	key := usedDatesCacheKey(rotationID)
	if s.cache != nil {
		var cached []models.SpecialityUsedDates
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("used dates cache read failed", zap.String("rotation_id", rotationID), zap.Error(err))
		}
	}

	rotation, err := s.rotations.FindByID(ctx, rotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}

	specs, err := s.rotations.ListSpecialitiesByRotation(ctx, rotationID)
	if err != nil {
		return nil, storageError(err, "failed to list rotation specialities")
	}

	slots := schedule.Slots(rotation.StartDate, rotation.FinishDate)

	result := make([]models.SpecialityUsedDates, 0, len(specs))
	for _, spec := range specs {
		used := models.SpecialityUsedDates{
			RotationSpecialityID: spec.ID,
			UsedDates:            []models.RotationWindow{},
		}
		for _, slot := range slots {
			count, err := s.counter.CountBySlot(ctx, spec.ID, slot.StartDate, slot.FinishDate)
			if err != nil {
				return nil, storageError(err, "failed to count slot placements")
			}
			if spec.AvailableCapacity-count <= 0 {
				used.UsedDates = append(used.UsedDates, slot)
			}
		}
		result = append(result, used)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("used dates cache write failed", zap.String("rotation_id", rotationID), zap.Error(err))
		}
	}
	return result, nil
}

func usedDatesCacheKey(rotationID string) string {
	return fmt.Sprintf("capacity:used_dates:%s", rotationID)
}
