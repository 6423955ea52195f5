package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsched/rotations-api/internal/models"
	"github.com/clinsched/rotations-api/internal/repository"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

type mockRotationReader struct {
	rotation *models.Rotation
}

func (m *mockRotationReader) FindByID(ctx context.Context, id string) (*models.Rotation, error) {
	if m.rotation == nil || m.rotation.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.rotation, nil
}

type mockGroupReader struct {
	members []models.GroupMember
}

func (m *mockGroupReader) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	return m.members, nil
}

type mockRotationDateRepo struct {
	existing  []models.RotationDate
	created   []models.RotationDate
	updated   []repository.SlotUpdate
	createErr error
}

func (m *mockRotationDateRepo) ListByRotationStudent(ctx context.Context, rotationID, studentUserID string) ([]models.RotationDate, error) {
	return m.existing, nil
}

func (m *mockRotationDateRepo) CreateAll(ctx context.Context, dates []models.RotationDate) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = dates
	return nil
}

func (m *mockRotationDateRepo) UpdateSlots(ctx context.Context, updates []repository.SlotUpdate) error {
	m.updated = updates
	return nil
}

type mockCache struct {
	deleted []string
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) {
	m.deleted = append(m.deleted, keys...)
}

func validAssignRequest() AssignStudentRequest {
	return AssignStudentRequest{
		RotationID:    "rot-1",
		StudentUserID: "stu-1",
		Dates: []AssignmentEntry{
			{RotationSpecialityID: "rs-1", AvailableCapacity: 2, StartDate: "2025-01-02", FinishDate: "2025-01-08"},
			{RotationSpecialityID: "rs-2", AvailableCapacity: 1, StartDate: "2025-01-09", FinishDate: "2025-01-15"},
		},
	}
}

func newAssignmentFixture(dates *mockRotationDateRepo) (*AssignmentService, *mockCache) {
	rotations := &mockRotationReader{rotation: &models.Rotation{ID: "rot-1", GroupID: "grp-1"}}
	groups := &mockGroupReader{members: []models.GroupMember{{UserID: "stu-1"}, {UserID: "stu-2"}}}
	cache := &mockCache{}
	return NewAssignmentService(rotations, groups, dates, cache, nil, nil, nil), cache
}

func TestAssignmentServiceCreate(t *testing.T) {
	dates := &mockRotationDateRepo{}
	svc, cache := newAssignmentFixture(dates)

	msg, err := svc.Assign(context.Background(), validAssignRequest())
	require.NoError(t, err)
	assert.Equal(t, "rotation dates for the student created successfully", msg.Message)

	require.Len(t, dates.created, 2)
	assert.Equal(t, "rot-1", dates.created[0].RotationID)
	assert.Equal(t, "stu-1", dates.created[0].StudentUserID)
	assert.Equal(t, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), dates.created[0].StartDate)
	assert.Equal(t, []string{"capacity:used_dates:rot-1"}, cache.deleted)
}

func TestAssignmentServiceCreateNoCapacity(t *testing.T) {
	dates := &mockRotationDateRepo{}
	svc, cache := newAssignmentFixture(dates)

	req := validAssignRequest()
	req.Dates[1].AvailableCapacity = 0

	_, err := svc.Assign(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoCapacity))
	assert.Empty(t, dates.created)
	assert.Empty(t, cache.deleted)
}

func TestAssignmentServiceCreateConflictFromStorage(t *testing.T) {
	dates := &mockRotationDateRepo{createErr: appErrors.Clone(appErrors.ErrNoCapacity, "speciality slot is full")}
	svc, cache := newAssignmentFixture(dates)

	_, err := svc.Assign(context.Background(), validAssignRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoCapacity))
	assert.Empty(t, cache.deleted)
}

func TestAssignmentServiceNotInGroup(t *testing.T) {
	dates := &mockRotationDateRepo{}
	svc, _ := newAssignmentFixture(dates)

	req := validAssignRequest()
	req.StudentUserID = "stu-99"

	_, err := svc.Assign(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotInGroup))
}

func TestAssignmentServiceRotationNotFound(t *testing.T) {
	dates := &mockRotationDateRepo{}
	svc, _ := newAssignmentFixture(dates)

	req := validAssignRequest()
	req.RotationID = "missing"

	_, err := svc.Assign(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignmentServiceUpdateMatchedOnly(t *testing.T) {
	dates := &mockRotationDateRepo{existing: []models.RotationDate{
		{ID: "rd-1", RotationSpecialityID: "rs-1", StudentUserID: "stu-1"},
		{ID: "rd-2", RotationSpecialityID: "rs-9", StudentUserID: "stu-1"},
	}}
	svc, cache := newAssignmentFixture(dates)

	req := validAssignRequest()

	msg, err := svc.Assign(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "rotation dates for the student updated successfully", msg.Message)

	// Only the resubmitted speciality moves. rs-9 keeps its old slot and the
	// rs-2 entry has no row to rewrite.
	require.Len(t, dates.updated, 1)
	assert.Equal(t, "rd-1", dates.updated[0].RotationDateID)
	assert.Equal(t, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), dates.updated[0].StartDate)
	assert.Empty(t, dates.created)
	assert.Equal(t, []string{"capacity:used_dates:rot-1"}, cache.deleted)
}

func TestAssignmentServiceValidation(t *testing.T) {
	svc, _ := newAssignmentFixture(&mockRotationDateRepo{})

	req := validAssignRequest()
	req.Dates[0].StartDate = "02/01/2025"

	_, err := svc.Assign(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAssignmentServiceStudentDatesEmpty(t *testing.T) {
	svc, _ := newAssignmentFixture(&mockRotationDateRepo{})

	dates, err := svc.StudentDates(context.Background(), "rot-1", "stu-1")
	require.NoError(t, err)
	require.NotNil(t, dates)
	assert.Empty(t, dates)
}
