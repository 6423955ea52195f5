package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsched/rotations-api/internal/models"
	"github.com/clinsched/rotations-api/internal/service"
)

type specialityReaderMock struct {
	rotation *models.Rotation
	spec     *models.RotationSpeciality
}

func (m *specialityReaderMock) FindByID(ctx context.Context, id string) (*models.Rotation, error) {
	if m.rotation == nil {
		return nil, sql.ErrNoRows
	}
	return m.rotation, nil
}

func (m *specialityReaderMock) FindSpecialityByID(ctx context.Context, id string) (*models.RotationSpeciality, error) {
	if m.spec == nil {
		return nil, sql.ErrNoRows
	}
	return m.spec, nil
}

func (m *specialityReaderMock) ListSpecialitiesByRotation(ctx context.Context, rotationID string) ([]models.RotationSpeciality, error) {
	if m.spec == nil {
		return nil, nil
	}
	return []models.RotationSpeciality{*m.spec}, nil
}

type slotCounterMock struct {
	count int
}

func (m *slotCounterMock) CountBySlot(ctx context.Context, rotationSpecialityID string, start, finish time.Time) (int, error) {
	return m.count, nil
}

func capacityRouter(reader *specialityReaderMock, counter *slotCounterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewCapacityService(reader, counter, nil, 0, nil)
	h := NewCapacityHandler(svc)

	r := gin.New()
	r.GET("/rotation-specialities/:id/available-capacity", h.Available)
	r.GET("/rotations/:id/used-dates", h.UsedDates)
	return r
}

func TestCapacityHandlerAvailable(t *testing.T) {
	reader := &specialityReaderMock{spec: &models.RotationSpeciality{ID: "rs-1", AvailableCapacity: 3}}
	r := capacityRouter(reader, &slotCounterMock{count: 2})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rotation-specialities/rs-1/available-capacity?start_date=2025-01-02&finish_date=2025-01-08", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			AvailableCapacity int `json:"available_capacity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.AvailableCapacity)
}

func TestCapacityHandlerAvailableBadDates(t *testing.T) {
	r := capacityRouter(&specialityReaderMock{}, &slotCounterMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rotation-specialities/rs-1/available-capacity?start_date=02-01-2025", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapacityHandlerAvailableNotFound(t *testing.T) {
	r := capacityRouter(&specialityReaderMock{}, &slotCounterMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rotation-specialities/rs-missing/available-capacity?start_date=2025-01-02&finish_date=2025-01-08", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCapacityHandlerUsedDates(t *testing.T) {
	reader := &specialityReaderMock{
		rotation: &models.Rotation{
			ID:         "rot-1",
			StartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			FinishDate: time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC),
		},
		spec: &models.RotationSpeciality{ID: "rs-1", RotationID: "rot-1", AvailableCapacity: 1},
	}
	r := capacityRouter(reader, &slotCounterMock{count: 1})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rotations/rot-1/used-dates", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.SpecialityUsedDates `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	// Every weekly slot is full at capacity 1 with one placement each.
	assert.Len(t, body.Data[0].UsedDates, 2)
}
