package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaria/scolaria-api/internal/service"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
	"github.com/scolaria/scolaria-api/pkg/response"
)

// ReportCardHandler exposes report card endpoints.
type ReportCardHandler struct {
	cards *service.ReportCardService
	ranks *service.RankService
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(cards *service.ReportCardService, ranks *service.RankService) *ReportCardHandler {
	return &ReportCardHandler{cards: cards, ranks: ranks}
}

// Fetch godoc
// @Summary Fetch a student report card for a term
// @Tags ReportCards
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /report-cards/{studentId}/{termId} [get]
func (h *ReportCardHandler) Fetch(c *gin.Context) {
	view, err := h.cards.Fetch(c.Request.Context(), c.Param("studentId"), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Generate godoc
// @Summary Generate and persist a report card
// @Tags ReportCards
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId path string true "Term ID"
// @Param payload body service.GenerateReportCardRequest false "Narrative fields"
// @Success 200 {object} response.Envelope
// @Router /report-cards/{studentId}/{termId}/generate [post]
func (h *ReportCardHandler) Generate(c *gin.Context) {
	var req service.GenerateReportCardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	view, err := h.cards.Generate(c.Request.Context(), c.Param("studentId"), c.Param("termId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// PDF godoc
// @Summary Download a report card as PDF
// @Tags ReportCards
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param termId path string true "Term ID"
// @Success 200 {file} binary
// @Router /report-cards/{studentId}/{termId}/pdf [get]
func (h *ReportCardHandler) PDF(c *gin.Context) {
	studentID := c.Param("studentId")
	payload, err := h.cards.RenderPDF(c.Request.Context(), studentID, c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("report-card-%s.pdf", studentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// ClassCards godoc
// @Summary Fetch report cards for a whole class
// @Tags ReportCards
// @Produce json
// @Param classId path string true "Class ID"
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /report-cards/class/{classId}/{termId} [get]
func (h *ReportCardHandler) ClassCards(c *gin.Context) {
	views, err := h.cards.ClassReportCards(c.Request.Context(), c.Param("classId"), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// ClassRank godoc
// @Summary Rank a class for a term
// @Tags ReportCards
// @Produce json
// @Param classId path string true "Class ID"
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /report-cards/class/{classId}/{termId}/rank [get]
func (h *ReportCardHandler) ClassRank(c *gin.Context) {
	rows, err := h.ranks.RankClass(c.Request.Context(), c.Param("classId"), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
