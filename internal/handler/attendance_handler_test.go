package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/service"
)

type attendanceRepoMock struct {
	marked []models.AttendanceRecord
	listed []models.AttendanceRecord
}

func (m *attendanceRepoMock) MarkAll(ctx context.Context, records []models.AttendanceRecord) error {
	m.marked = append(m.marked, records...)
	return nil
}

func (m *attendanceRepoMock) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return m.listed, len(m.listed), nil
}

func TestAttendanceHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoMock{}
	handler := NewAttendanceHandler(service.NewAttendanceService(repo, nil, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	payload := `{"date":"2026-08-27T00:00:00Z","entries":[{"student_id":"2f0c41f2-8a43-4a0e-9a25-6076cf78f7b8","status":"PRESENT"}]}`
	req, _ := http.NewRequest(http.MethodPost, "/attendance", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Mark(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, repo.marked, 1)
	assert.Equal(t, models.AttendancePresent, repo.marked[0].Status)
}

func TestAttendanceHandlerMarkInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(service.NewAttendanceService(&attendanceRepoMock{}, nil, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/attendance", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Mark(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerMarkListsInvalidFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(service.NewAttendanceService(&attendanceRepoMock{}, nil, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/attendance", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error struct {
			Code   string `json:"code"`
			Fields []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	require.NotEmpty(t, envelope.Error.Fields)

	names := make([]string, 0, len(envelope.Error.Fields))
	for _, f := range envelope.Error.Fields {
		names = append(names, f.Field)
	}
	assert.Contains(t, names, "Date")
	assert.Contains(t, names, "Entries")
}

func TestAttendanceHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoMock{listed: []models.AttendanceRecord{
		{ID: "a1", StudentID: "s1", Status: models.AttendanceAbsent},
	}}
	handler := NewAttendanceHandler(service.NewAttendanceService(repo, nil, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/attendance?from=2026-08-01&to=2026-08-27&status=ABSENT", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.AttendanceRecord `json:"data"`
		Pagination *models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
