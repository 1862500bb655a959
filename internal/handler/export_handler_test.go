package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/confplan-api/internal/dto"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
)

type exportMock struct {
	capturedReq    dto.CreateExportRequest
	capturedBy     string
	createErr      error
	downloadFile   string
	downloadErr    error
	statusResponse *dto.ExportStatusResponse
}

func (m *exportMock) Create(ctx context.Context, req dto.CreateExportRequest, createdBy string) (*dto.ExportJobResponse, error) {
	m.capturedReq = req
	m.capturedBy = createdBy
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.ExportJobResponse{ID: "export-1", Status: "QUEUED"}, nil
}

func (m *exportMock) Status(ctx context.Context, jobID string) (*dto.ExportStatusResponse, error) {
	if m.statusResponse != nil {
		return m.statusResponse, nil
	}
	return &dto.ExportStatusResponse{ID: jobID, Status: "QUEUED"}, nil
}

func (m *exportMock) Download(ctx context.Context, token string) (*os.File, string, error) {
	if m.downloadErr != nil {
		return nil, "", m.downloadErr
	}
	file, err := os.Open(m.downloadFile)
	if err != nil {
		return nil, "", err
	}
	return file, filepath.Base(m.downloadFile), nil
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportMock{}
	handler := &ExportHandler{service: mockSvc}

	payload := []byte(`{"scheduleId":"sched-1","format":"csv"}`)
	req, _ := http.NewRequest(http.MethodPost, "/exports", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "sched-1", mockSvc.capturedReq.ScheduleID)
	require.Equal(t, "anonymous", mockSvc.capturedBy)
	require.Contains(t, w.Body.String(), "export-1")
}

func TestExportHandlerCreateUnknownSchedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{service: &exportMock{createErr: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")}}

	payload := []byte(`{"scheduleId":"missing","format":"pdf"}`)
	req, _ := http.NewRequest(http.MethodPost, "/exports", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resultURL := "/api/v1/exports/download?token=abc"
	handler := &ExportHandler{service: &exportMock{statusResponse: &dto.ExportStatusResponse{
		ID:        "export-1",
		Status:    "FINISHED",
		ResultURL: &resultURL,
	}}}
	router := gin.New()
	router.GET("/exports/:id", handler.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/export-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "FINISHED")
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("room,capacity\nRoom 1,30\n"), 0o644))

	handler := &ExportHandler{service: &exportMock{downloadFile: path}}
	router := gin.New()
	router.GET("/exports/download", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/download?token=valid-token", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Room 1,30")
	require.Contains(t, w.Header().Get("Content-Disposition"), "schedule.csv")
}

func TestExportHandlerDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{service: &exportMock{}}
	router := gin.New()
	router.GET("/exports/download", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/download", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownloadForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{service: &exportMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid download token")}}
	router := gin.New()
	router.GET("/exports/download", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/download?token=tampered", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
