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
	"github.com/clinsched/rotations-api/internal/schedule"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type rotationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Rotation, error)
	FindDetailByID(ctx context.Context, id string) (*models.RotationDetail, error)
	List(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, error)
	ListPaginated(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, int, error)
	CreateWithSpecialities(ctx context.Context, rotation *models.Rotation, specialities []models.RotationSpeciality) error
	UpdateWithSpecialities(ctx context.Context, rotation *models.Rotation, diff repository.SpecialityDiff) error
	Delete(ctx context.Context, id string) error
	ExistsGroupCollision(ctx context.Context, groupID string, start, finish time.Time, excludeID string) (bool, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupRotation, error)
	ListUpcomingWindowsByFacility(ctx context.Context, facilityID string, from time.Time) ([]models.RotationWindow, error)
}

type facilityReader interface {
	FindByID(ctx context.Context, id string) (*models.Facility, error)
	CapacityLimits(ctx context.Context, facilityID string) (map[string]int, error)
}

type evaluationChecker interface {
	ExistsForRotation(ctx context.Context, rotationID string) (bool, error)
}

type rotationEventRecorder interface {
	RecordRotationCreated()
	RecordRotationRemoved()
}

// CreateRotationRequest describes a rotation creation payload.
type CreateRotationRequest struct {
	GroupID      string                       `json:"group_id" validate:"required"`
	FacilityID   string                       `json:"facility_id" validate:"required"`
	StartDate    string                       `json:"start_date" validate:"required,datetime=2006-01-02"`
	FinishDate   string                       `json:"finish_date" validate:"required,datetime=2006-01-02"`
	Semester     int                          `json:"semester" validate:"required,min=1"`
	Specialities []schedule.SpecialityRequest `json:"specialities" validate:"required,min=1,dive"`
}

// UpdateRotationRequest mirrors the creation payload; the full speciality set
// is resubmitted and diffed against the stored one.
type UpdateRotationRequest = CreateRotationRequest

// RotationService orchestrates rotation lifecycle: creation with capacity
// stamping, locked updates with speciality diffing, and cascaded removal.
type RotationService struct {
	repo        rotationRepository
	facilities  facilityReader
	evaluations evaluationChecker
	metrics     rotationEventRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRotationService constructs RotationService.
func NewRotationService(repo rotationRepository, facilities facilityReader, evaluations evaluationChecker, metrics rotationEventRecorder, validate *validator.Validate, logger *zap.Logger) *RotationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RotationService{repo: repo, facilities: facilities, evaluations: evaluations, metrics: metrics, validator: validate, logger: logger}
}

// Create registers a rotation and its stamped specialities. No capacity is
// consumed yet; students are placed later through assignments.
func (s *RotationService) Create(ctx context.Context, req CreateRotationRequest) (*models.Message, error) {
	start, finish, err := s.window(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.facilities.FindByID(ctx, req.FacilityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "facility not found")
		}
		return nil, storageError(err, "failed to load facility")
	}

	limits, err := s.facilities.CapacityLimits(ctx, req.FacilityID)
	if err != nil {
		return nil, storageError(err, "failed to load facility capacity limits")
	}

	stamped, err := schedule.AllocateCapacity(start, finish, req.Specialities, limits)
	if err != nil {
		return nil, err
	}

	rotation := &models.Rotation{
		GroupID:    req.GroupID,
		FacilityID: req.FacilityID,
		Semester:   req.Semester,
		StartDate:  start,
		FinishDate: finish,
		State:      true,
	}
	if err := s.repo.CreateWithSpecialities(ctx, rotation, specialityModels(stamped)); err != nil {
		return nil, storageError(err, "failed to create rotation")
	}

	if s.metrics != nil {
		s.metrics.RecordRotationCreated()
	}
	s.logger.Info("rotation created",
		zap.String("rotation_id", rotation.ID),
		zap.String("group_id", rotation.GroupID),
		zap.String("facility_id", rotation.FacilityID),
		zap.Int("specialities", len(stamped)))

	return &models.Message{Message: "rotation created successfully"}, nil
}

// Update rewrites the rotation fields and diffs the speciality set. Updates
// are refused once any student placement exists.
func (s *RotationService) Update(ctx context.Context, rotationID string, req UpdateRotationRequest) (*models.Message, error) {
	start, finish, err := s.window(req)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, rotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}

	if len(detail.Dates) > 0 {
		return nil, appErrors.Clone(appErrors.ErrLockedByAssignments,
			"rotation cannot be updated, students already have dates assigned")
	}

	limits, err := s.facilities.CapacityLimits(ctx, req.FacilityID)
	if err != nil {
		return nil, storageError(err, "failed to load facility capacity limits")
	}

	stamped, err := schedule.AllocateCapacity(start, finish, req.Specialities, limits)
	if err != nil {
		return nil, err
	}

	collides, err := s.repo.ExistsGroupCollision(ctx, req.GroupID, start, finish, rotationID)
	if err != nil {
		return nil, storageError(err, "failed to check rotation collisions")
	}
	if collides {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRotation,
			"the group already has a rotation assigned on the selected dates")
	}

	diff := diffSpecialities(detail.Specialities, stamped)

	rotation := detail.Rotation
	rotation.GroupID = req.GroupID
	rotation.FacilityID = req.FacilityID
	rotation.Semester = req.Semester
	rotation.StartDate = start
	rotation.FinishDate = finish

	if err := s.repo.UpdateWithSpecialities(ctx, &rotation, diff); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to update rotation")
	}

	s.logger.Info("rotation updated",
		zap.String("rotation_id", rotationID),
		zap.Int("specialities_added", len(diff.Create)),
		zap.Int("specialities_removed", len(diff.Delete)))

	return &models.Message{Message: "rotation updated successfully"}, nil
}

// Remove deletes a rotation cascading through its dates and specialities.
// Rotations with recorded evaluations are kept.
func (s *RotationService) Remove(ctx context.Context, rotationID string) (*models.Message, error) {
	if _, err := s.repo.FindByID(ctx, rotationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}

	hasEvaluations, err := s.evaluations.ExistsForRotation(ctx, rotationID)
	if err != nil {
		return nil, storageError(err, "failed to check rotation evaluations")
	}
	if hasEvaluations {
		return nil, appErrors.Clone(appErrors.ErrHasEvaluations,
			"rotation cannot be removed, evaluations are recorded against it")
	}

	if err := s.repo.Delete(ctx, rotationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to delete rotation")
	}

	if s.metrics != nil {
		s.metrics.RecordRotationRemoved()
	}
	s.logger.Info("rotation removed", zap.String("rotation_id", rotationID))

	return &models.Message{Message: "rotation removed successfully"}, nil
}

// List returns rotations matching the filter.
func (s *RotationService) List(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, error) {
	rotations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError(err, "failed to list rotations")
	}
	return rotations, nil
}

// ListPaginated returns a rotations page with pagination metadata.
func (s *RotationService) ListPaginated(ctx context.Context, filter models.RotationFilter) ([]models.Rotation, *models.Pagination, error) {
	rotations, total, err := s.repo.ListPaginated(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list rotations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 10
	}
	return rotations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one rotation with its specialities and dates.
func (s *RotationService) Get(ctx context.Context, rotationID string) (*models.RotationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, rotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}
	return detail, nil
}

// GroupRotations lists the compact rotation windows of a group.
func (s *RotationService) GroupRotations(ctx context.Context, groupID string) ([]models.GroupRotation, error) {
	rotations, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storageError(err, "failed to list group rotations")
	}
	return rotations, nil
}

// UsedFacilityWindows returns windows already occupied at the facility that
// still touch the future, so new rotations avoid them.
func (s *RotationService) UsedFacilityWindows(ctx context.Context, facilityID string) ([]models.RotationWindow, error) {
	windows, err := s.repo.ListUpcomingWindowsByFacility(ctx, facilityID, schedule.Day(time.Now().UTC()))
	if err != nil {
		return nil, storageError(err, "failed to list facility windows")
	}
	return windows, nil
}

func (s *RotationService) window(req CreateRotationRequest) (time.Time, time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rotation payload")
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	finish, err := time.ParseInLocation(dateLayout, req.FinishDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid finish date")
	}
	if finish.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "finish date precedes start date")
	}
	return start, finish, nil
}

func specialityModels(stamped []schedule.SpecialityRequest) []models.RotationSpeciality {
	specs := make([]models.RotationSpeciality, len(stamped))
	for i, req := range stamped {
		specs[i] = models.RotationSpeciality{
			SpecialityID:      req.SpecialityID,
			ProfessorID:       req.ProfessorID,
			AvailableCapacity: req.AvailableCapacity,
			NumberWeeks:       req.NumberWeeks,
		}
	}
	return specs
}

// diffSpecialities splits the requested set against the stored one. Entries
// in both sets keep their row but refresh professor, capacity and weeks.
func diffSpecialities(current []models.RotationSpeciality, requested []schedule.SpecialityRequest) repository.SpecialityDiff {
	currentIDs := make(map[string]struct{}, len(current))
	for _, spec := range current {
		currentIDs[spec.SpecialityID] = struct{}{}
	}
	requestedIDs := make(map[string]struct{}, len(requested))
	for _, req := range requested {
		requestedIDs[req.SpecialityID] = struct{}{}
	}

	var diff repository.SpecialityDiff
	for _, req := range requested {
		spec := models.RotationSpeciality{
			SpecialityID:      req.SpecialityID,
			ProfessorID:       req.ProfessorID,
			AvailableCapacity: req.AvailableCapacity,
			NumberWeeks:       req.NumberWeeks,
		}
		if _, exists := currentIDs[req.SpecialityID]; exists {
			diff.Update = append(diff.Update, spec)
		} else {
			diff.Create = append(diff.Create, spec)
		}
	}
	for _, spec := range current {
		if _, kept := requestedIDs[spec.SpecialityID]; !kept {
			diff.Delete = append(diff.Delete, spec.SpecialityID)
		}
	}
	return diff
}

// storageError passes typed domain errors through and wraps everything else
// as a storage failure.
func storageError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, message)
}
