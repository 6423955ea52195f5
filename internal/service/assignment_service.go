package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinsched/rotations-api/internal/models"
	"github.com/clinsched/rotations-api/internal/repository"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

type rotationReader interface {
	FindByID(ctx context.Context, id string) (*models.Rotation, error)
}

type groupReader interface {
	Members(ctx context.Context, groupID string) ([]models.GroupMember, error)
}

type rotationDateRepository interface {
	ListByRotationStudent(ctx context.Context, rotationID, studentUserID string) ([]models.RotationDate, error)
	CreateAll(ctx context.Context, dates []models.RotationDate) error
	UpdateSlots(ctx context.Context, updates []repository.SlotUpdate) error
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string)
}

type assignmentEventRecorder interface {
	RecordAssignment(created bool)
	RecordCapacityConflict()
}

// AssignmentEntry names one requested speciality slot for a student. The
// available capacity is the remainder the caller saw when picking the slot;
// zero means the slot was already full in the picker.
type AssignmentEntry struct {
	RotationSpecialityID string `json:"rotation_speciality_id" validate:"required"`
	AvailableCapacity    int    `json:"available_capacity" validate:"min=0"`
	StartDate            string `json:"start_date" validate:"required,datetime=2006-01-02"`
	FinishDate           string `json:"finish_date" validate:"required,datetime=2006-01-02"`
}

// AssignStudentRequest places one student into rotation speciality slots.
type AssignStudentRequest struct {
	RotationID    string            `json:"rotation_id" validate:"required"`
	StudentUserID string            `json:"student_user_id" validate:"required"`
	Dates         []AssignmentEntry `json:"rotation_dates" validate:"required,min=1,dive"`
}

// AssignmentService orchestrates per-student placement into weekly slots.
type AssignmentService struct {
	rotations rotationReader
	groups    groupReader
	dates     rotationDateRepository
	cache     cacheInvalidator
	metrics   assignmentEventRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(rotations rotationReader, groups groupReader, dates rotationDateRepository, cache cacheInvalidator, metrics assignmentEventRecorder, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{rotations: rotations, groups: groups, dates: dates, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Assign creates a student's placements on first call and overwrites the
// matched ones on repeated calls. Re-assignment only updates: entries the
// student holds but did not resubmit keep their old slot. That asymmetry is
// intentional and mirrors how slot pickers resubmit partial selections.
func (s *AssignmentService) Assign(ctx context.Context, req AssignStudentRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	rotation, err := s.rotations.FindByID(ctx, req.RotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}

	members, err := s.groups.Members(ctx, rotation.GroupID)
	if err != nil {
		return nil, storageError(err, "failed to load group members")
	}
	if !isMember(members, req.StudentUserID) {
		return nil, appErrors.Clone(appErrors.ErrNotInGroup, "the student does not belong to the rotation group")
	}

	existing, err := s.dates.ListByRotationStudent(ctx, req.RotationID, req.StudentUserID)
	if err != nil {
		return nil, storageError(err, "failed to load student placements")
	}

	if len(existing) == 0 {
		return s.create(ctx, rotation, req)
	}
	return s.update(ctx, existing, req)
}

func (s *AssignmentService) create(ctx context.Context, rotation *models.Rotation, req AssignStudentRequest) (*models.Message, error) {
	// All-or-nothing: refuse the whole request when any picked slot was
	// already full, before touching storage.
	for _, entry := range req.Dates {
		if entry.AvailableCapacity == 0 {
			if s.metrics != nil {
				s.metrics.RecordCapacityConflict()
			}
			return nil, appErrors.Clone(appErrors.ErrNoCapacity,
				"some requested speciality slots have no remaining capacity")
		}
	}

	dates := make([]models.RotationDate, 0, len(req.Dates))
	for _, entry := range req.Dates {
		start, finish, err := parseWindow(entry.StartDate, entry.FinishDate)
		if err != nil {
			return nil, err
		}
		dates = append(dates, models.RotationDate{
			RotationID:           req.RotationID,
			RotationSpecialityID: entry.RotationSpecialityID,
			StudentUserID:        req.StudentUserID,
			StartDate:            start,
			FinishDate:           finish,
		})
	}

	if err := s.dates.CreateAll(ctx, dates); err != nil {
		if appErrors.Is(err, appErrors.ErrNoCapacity) && s.metrics != nil {
			s.metrics.RecordCapacityConflict()
		}
		return nil, storageError(err, "failed to create student placements")
	}

	s.invalidate(ctx, req.RotationID)
	if s.metrics != nil {
		s.metrics.RecordAssignment(true)
	}
	s.logger.Info("student dates created",
		zap.String("rotation_id", req.RotationID),
		zap.String("student_user_id", req.StudentUserID),
		zap.Int("placements", len(dates)))

	return &models.Message{Message: "rotation dates for the student created successfully"}, nil
}

func (s *AssignmentService) update(ctx context.Context, existing []models.RotationDate, req AssignStudentRequest) (*models.Message, error) {
	entriesBySpeciality := make(map[string]AssignmentEntry, len(req.Dates))
	for _, entry := range req.Dates {
		entriesBySpeciality[entry.RotationSpecialityID] = entry
	}

	updates := make([]repository.SlotUpdate, 0, len(existing))
	for _, row := range existing {
		entry, requested := entriesBySpeciality[row.RotationSpecialityID]
		if !requested {
			continue
		}
		start, finish, err := parseWindow(entry.StartDate, entry.FinishDate)
		if err != nil {
			return nil, err
		}
		updates = append(updates, repository.SlotUpdate{
			RotationDateID: row.ID,
			StartDate:      start,
			FinishDate:     finish,
		})
	}

	if err := s.dates.UpdateSlots(ctx, updates); err != nil {
		return nil, storageError(err, "failed to update student placements")
	}

	s.invalidate(ctx, req.RotationID)
	if s.metrics != nil {
		s.metrics.RecordAssignment(false)
	}
	s.logger.Info("student dates updated",
		zap.String("rotation_id", req.RotationID),
		zap.String("student_user_id", req.StudentUserID),
		zap.Int("placements", len(updates)))

	return &models.Message{Message: "rotation dates for the student updated successfully"}, nil
}

// StudentDates is a read probe: a student without placements yields an empty
// list, not an error.
func (s *AssignmentService) StudentDates(ctx context.Context, rotationID, studentUserID string) ([]models.RotationDate, error) {
	dates, err := s.dates.ListByRotationStudent(ctx, rotationID, studentUserID)
	if err != nil {
		return nil, storageError(err, "failed to load student placements")
	}
	if dates == nil {
		dates = []models.RotationDate{}
	}
	return dates, nil
}

func (s *AssignmentService) invalidate(ctx context.Context, rotationID string) {
	if s.cache != nil {
		s.cache.Delete(ctx, usedDatesCacheKey(rotationID))
	}
}

func isMember(members []models.GroupMember, studentUserID string) bool {
	for _, member := range members {
		if member.UserID == studentUserID {
			return true
		}
	}
	return false
}

func parseWindow(startRaw, finishRaw string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, startRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid slot start date")
	}
	finish, err := time.ParseInLocation(dateLayout, finishRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid slot finish date")
	}
	if finish.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "slot finish precedes slot start")
	}
	return start, finish, nil
}
