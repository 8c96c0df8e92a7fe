package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria-api/internal/models"
	"github.com/scolaria/scolaria-api/internal/service"
)

type sessionRepoMock struct {
	sessions map[string]models.Session
	nextID   int
}

func newSessionRepoMock(seed ...models.Session) *sessionRepoMock {
	repo := &sessionRepoMock{sessions: make(map[string]models.Session)}
	for _, session := range seed {
		repo.sessions[session.ID] = session
	}
	return repo
}

func (m *sessionRepoMock) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (m *sessionRepoMock) list(match func(models.Session) bool) []models.Session {
	var result []models.Session
	for _, session := range m.sessions {
		if session.Active() && match(session) {
			result = append(result, session)
		}
	}
	return result
}

func (m *sessionRepoMock) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Session, error) {
	return m.list(func(s models.Session) bool { return s.RoomID == roomID }), nil
}

func (m *sessionRepoMock) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.Session, error) {
	return m.list(func(s models.Session) bool { return s.TeacherID == teacherID }), nil
}

func (m *sessionRepoMock) ListActiveByClass(ctx context.Context, classID string) ([]models.Session, error) {
	return m.list(func(s models.Session) bool { return s.ClassID == classID }), nil
}

func (m *sessionRepoMock) Create(ctx context.Context, session *models.Session) error {
	m.nextID++
	session.ID = fmt.Sprintf("sess-%d", m.nextID)
	m.sessions[session.ID] = *session
	return nil
}

func (m *sessionRepoMock) Update(ctx context.Context, session *models.Session) error {
	m.sessions[session.ID] = *session
	return nil
}

func (m *sessionRepoMock) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	session := m.sessions[id]
	session.Status = status
	m.sessions[id] = session
	return nil
}

func (m *sessionRepoMock) HardDelete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func newTimetableRouter(repo *sessionRepoMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewTimetableService(repo, nil, "2024-2025", nil, nil)
	h := NewTimetableHandler(svc)

	r := gin.New()
	r.POST("/sessions", h.Create)
	r.POST("/sessions/conflicts", h.CheckConflicts)
	r.PUT("/sessions/:id", h.Update)
	r.DELETE("/sessions/:id", h.Deactivate)
	r.GET("/sessions/class/:classId/week", h.ClassWeek)
	return r
}

func bookedMonday() models.Session {
	return models.Session{
		ID:        "sess-base",
		ClassID:   "c1",
		TeacherID: "teach-1",
		RoomID:    "room-1",
		Weekday:   1,
		StartTime: "08:00",
		EndTime:   "09:00",
		Status:    models.SessionActive,
	}
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTimetableHandlerCreateConflict(t *testing.T) {
	r := newTimetableRouter(newSessionRepoMock(bookedMonday()))

	w := postJSON(r, "/sessions", service.SessionRequest{
		ClassID:   "c1",
		TeacherID: "teach-1",
		RoomID:    "room-1",
		Weekday:   1,
		StartTime: "08:30",
		EndTime:   "09:30",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta map[string]json.RawMessage `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)

	var conflicts []models.SessionConflict
	require.NoError(t, json.Unmarshal(envelope.Meta["conflicts"], &conflicts))
	require.NotEmpty(t, conflicts)
	assert.Equal(t, "sess-base", conflicts[0].SessionID)
}

func TestTimetableHandlerCreateTouchingSlots(t *testing.T) {
	repo := newSessionRepoMock(bookedMonday())
	r := newTimetableRouter(repo)

	w := postJSON(r, "/sessions", service.SessionRequest{
		ClassID:   "c1",
		TeacherID: "teach-1",
		RoomID:    "room-1",
		Weekday:   1,
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.sessions, 2)
}

func TestTimetableHandlerCheckConflictsEmpty(t *testing.T) {
	r := newTimetableRouter(newSessionRepoMock(bookedMonday()))

	w := postJSON(r, "/sessions/conflicts", service.SessionRequest{
		ClassID:   "c2",
		TeacherID: "teach-2",
		RoomID:    "room-2",
		Weekday:   1,
		StartTime: "08:00",
		EndTime:   "09:00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.SessionConflict `json:"data"`
		Meta map[string]int           `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)
	assert.Equal(t, 0, envelope.Meta["conflict_count"])
}

func TestTimetableHandlerRejectsBadPayload(t *testing.T) {
	r := newTimetableRouter(newSessionRepoMock())

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerDeactivate(t *testing.T) {
	repo := newSessionRepoMock(bookedMonday())
	r := newTimetableRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/sess-base", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.SessionInactive, repo.sessions["sess-base"].Status)
}

func TestTimetableHandlerClassWeek(t *testing.T) {
	r := newTimetableRouter(newSessionRepoMock(bookedMonday()))

	req := httptest.NewRequest(http.MethodGet, "/sessions/class/c1/week", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.DaySchedule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 6)
	assert.Equal(t, "Lundi", envelope.Data[0].Name)
	assert.Len(t, envelope.Data[0].Sessions, 1)
}
