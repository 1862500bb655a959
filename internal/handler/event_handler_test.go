package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
)

type eventMock struct {
	captured  dto.CreateEventRequest
	createErr error
	getErr    error
	deletedID string
}

func (m *eventMock) Create(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	m.captured = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Event{ID: "event-1", Name: req.Name}, nil
}

func (m *eventMock) Get(ctx context.Context, id string) (*models.Event, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Event{ID: id, Name: "DevConf"}, nil
}

func (m *eventMock) List(ctx context.Context, query dto.EventQuery) ([]models.Event, *models.Pagination, error) {
	return []models.Event{{ID: "event-1"}}, &models.Pagination{Page: query.Page, Limit: query.Limit, Total: 1, TotalPages: 1}, nil
}

func (m *eventMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func TestEventHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventMock{}
	handler := &EventHandler{service: mockSvc}

	payload := []byte(`{"name":"DevConf","timeSlots":["morning"],"roomCapacities":[30],"presentations":["go"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "DevConf", mockSvc.captured.Name)
	require.Contains(t, w.Body.String(), "event-1")
}

func TestEventHandlerCreateCardinalityMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventMock{createErr: appErrors.Clone(appErrors.ErrCardinalityMismatch, "")}
	handler := &EventHandler{service: mockSvc}

	payload := []byte(`{"name":"DevConf","timeSlots":["morning"],"roomCapacities":[30],"presentations":["go","java"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/events", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEventHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &EventHandler{service: &eventMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "event not found")}}
	router := gin.New()
	router.GET("/events/:id", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/events/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerListDefaultsPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &EventHandler{service: &eventMock{}}
	router := gin.New()
	router.GET("/events", handler.List)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/events", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"pagination"`)
}

func TestEventHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventMock{}
	handler := &EventHandler{service: mockSvc}
	router := gin.New()
	router.DELETE("/events/:id", handler.Delete)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/events/event-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "event-1", mockSvc.deletedID)
}
