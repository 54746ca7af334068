package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

type gradeService interface {
	SetGrade(ctx context.Context, studentID string, req dto.SetGradeRequest, actor models.Actor) (*models.Grade, error)
	BulkSetGrades(ctx context.Context, req dto.BulkGradesRequest, actor models.Actor) (*models.BulkGradesResult, error)
	ReportCard(ctx context.Context, studentID, term string) (*models.ReportCard, error)
}

// GradeHandler exposes the grade sheet.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Set godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.SetGradeRequest true "Grade"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/{id}/grades [put]
func (h *GradeHandler) Set(c *gin.Context) {
	var req dto.SetGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload"))
		return
	}
	grade, err := h.grades.SetGrade(c.Request.Context(), c.Param("id"), req, middleware.ActorFor(c, models.ScopeGrades))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Bulk godoc
// @Summary Record one subject for a whole class
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.BulkGradesRequest true "Grades"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) Bulk(c *gin.Context) {
	var req dto.BulkGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload"))
		return
	}
	result, err := h.grades.BulkSetGrades(c.Request.Context(), req, middleware.ActorFor(c, models.ScopeGrades))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReportCard godoc
// @Summary Student report card
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param trimestre query string false "Term, every term when empty"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report-card [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	card, err := h.grades.ReportCard(c.Request.Context(), c.Param("id"), c.Query("trimestre"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}
