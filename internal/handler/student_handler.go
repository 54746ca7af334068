package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

type studentService interface {
	Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentView, error)
	Get(ctx context.Context, id string) (*models.StudentView, error)
	Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentView, error)
	Delete(ctx context.Context, id string, actor models.Actor) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentView, *models.Pagination, error)
	ListByClass(ctx context.Context, filter models.StudentFilter) ([]models.ClassRoster, error)
}

// StudentHandler exposes student registry endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by surname or given names"
// @Param classe query string false "Filter by class label"
// @Param groupe query string false "Filter by group (primaire, secondaire)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter, err := parseStudentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// ListByClass godoc
// @Summary List students grouped by class
// @Tags Students
// @Produce json
// @Param search query string false "Search by surname or given names"
// @Param classe query string false "Filter by class label"
// @Param groupe query string false "Filter by group (primaire, secondaire)"
// @Success 200 {object} response.Envelope
// @Router /students/by-class [get]
func (h *StudentHandler) ListByClass(c *gin.Context) {
	filter, err := parseStudentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rosters, err := h.students.ListByClass(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rosters, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Register godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req dto.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student with its grades and payments
// @Tags Students
// @Param id path string true "Student ID"
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.students.Delete(c.Request.Context(), id, middleware.ActorFor(c, models.ScopeDeletions))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !removed {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student "+id+" not found"))
		return
	}
	response.NoContent(c)
}

func parseStudentFilter(c *gin.Context) (models.StudentFilter, error) {
	filter := models.StudentFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		ClassLabel: strings.TrimSpace(c.Query("classe")),
	}
	switch group := models.Group(strings.ToLower(c.Query("groupe"))); group {
	case "", models.GroupPrimary, models.GroupSecondary:
		filter.Group = group
	default:
		return filter, appErrors.Clone(appErrors.ErrValidation, "groupe must be primaire or secondaire")
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
