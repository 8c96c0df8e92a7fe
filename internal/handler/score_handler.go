package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaria/scolaria-api/internal/models"
	"github.com/scolaria/scolaria-api/internal/service"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
	"github.com/scolaria/scolaria-api/pkg/response"
)

// ScoreHandler exposes score entry endpoints.
type ScoreHandler struct {
	scores *service.ScoreService
}

// NewScoreHandler constructs handler.
func NewScoreHandler(scores *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// List godoc
// @Summary List recorded scores
// @Tags Scores
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param termId query string false "Filter by term"
// @Param assignmentId query string false "Filter by assignment"
// @Param subjectId query string false "Filter by subject"
// @Success 200 {object} response.Envelope
// @Router /scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	filter := models.ScoreFilter{
		StudentID:    c.Query("studentId"),
		TermID:       c.Query("termId"),
		AssignmentID: c.Query("assignmentId"),
		SubjectID:    c.Query("subjectId"),
	}
	scores, err := h.scores.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Record godoc
// @Summary Record or replace one score
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body service.ScoreEntryRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /scores [post]
func (h *ScoreHandler) Record(c *gin.Context) {
	var req service.ScoreEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.scores.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Bulk godoc
// @Summary Record a batch of scores atomically
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body service.BulkScoreRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /scores/bulk [post]
func (h *ScoreHandler) Bulk(c *gin.Context) {
	var req service.BulkScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.scores.RecordBulk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
