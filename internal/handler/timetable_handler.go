package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaria/scolaria-api/internal/models"
	"github.com/scolaria/scolaria-api/internal/service"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
	"github.com/scolaria/scolaria-api/pkg/response"
)

// TimetableHandler exposes session scheduling endpoints.
type TimetableHandler struct {
	timetable *service.TimetableService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(timetable *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable}
}

// Create godoc
// @Summary Create a session
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.SessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, conflicts, err := h.timetable.Create(c.Request.Context(), req)
	if err != nil {
		h.conflictOrError(c, conflicts, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update a session
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, conflicts, err := h.timetable.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.conflictOrError(c, conflicts, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// CheckConflicts godoc
// @Summary Dry-run conflict detection for a session slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/conflicts [post]
func (h *TimetableHandler) CheckConflicts(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	conflicts, err := h.timetable.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.SessionConflict{}
	}
	response.JSON(c, http.StatusOK, conflicts, nil, map[string]interface{}{"conflict_count": len(conflicts)})
}

// Deactivate godoc
// @Summary Deactivate a session
// @Tags Timetable
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *TimetableHandler) Deactivate(c *gin.Context) {
	if err := h.timetable.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Purge godoc
// @Summary Permanently delete a session
// @Tags Timetable
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id}/purge [delete]
func (h *TimetableHandler) Purge(c *gin.Context) {
	if err := h.timetable.Purge(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByClass godoc
// @Summary List active sessions of a class
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/class/{classId} [get]
func (h *TimetableHandler) ListByClass(c *gin.Context) {
	sessions, err := h.timetable.ListByClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ListByTeacher godoc
// @Summary List active sessions of a teacher
// @Tags Timetable
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/teacher/{teacherId} [get]
func (h *TimetableHandler) ListByTeacher(c *gin.Context) {
	sessions, err := h.timetable.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ListByRoom godoc
// @Summary List active sessions of a room
// @Tags Timetable
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/room/{roomId} [get]
func (h *TimetableHandler) ListByRoom(c *gin.Context) {
	sessions, err := h.timetable.ListByRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ClassWeek godoc
// @Summary Weekly schedule of a class grouped by day
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/class/{classId}/week [get]
func (h *TimetableHandler) ClassWeek(c *gin.Context) {
	week, err := h.timetable.ClassWeek(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}

// conflictOrError reports detected conflicts alongside the 409 envelope so the
// caller can see exactly which sessions clash.
func (h *TimetableHandler) conflictOrError(c *gin.Context, conflicts []models.SessionConflict, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status == http.StatusConflict && len(conflicts) > 0 {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusConflict, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"conflicts": conflicts},
		})
		return
	}
	response.Error(c, err)
}
