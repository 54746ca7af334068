package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

// GradeService implements the grade sheet.
type GradeService struct {
	repo      datasetRepository
	validator *validator.Validate
	logger    *zap.Logger
	bounds    config.GradesConfig
	now       func() time.Time
}

// NewGradeService constructs a GradeService.
func NewGradeService(repo datasetRepository, bounds config.GradesConfig, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if bounds.Max <= bounds.Min {
		bounds = config.GradesConfig{Min: 0, Max: 20}
	}
	return &GradeService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		bounds:    bounds,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetGrade records a grade, replacing any existing grade for the same subject and term.
func (s *GradeService) SetGrade(ctx context.Context, studentID string, req dto.SetGradeRequest, actor models.Actor) (*models.Grade, error) {
	if !actor.Authorized {
		return nil, unauthorized("entering grades")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.checkValue(*req.Value); err != nil {
		return nil, err
	}

	grade := s.newGrade(req.Subject, req.Term, *req.Value, req.Coefficient, req.Recorder, actor)
	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		student, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		upsertGrade(student, grade)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to record grade")
	}

	s.logger.Info("grade recorded", zap.String("student_id", studentID), zap.String("matiere", grade.Subject), zap.String("trimestre", grade.Term))
	return &grade, nil
}

// BulkSetGrades applies one subject to many students of a class in a single
// update. Entries for unknown students or other classes are reported as ignored.
func (s *GradeService) BulkSetGrades(ctx context.Context, req dto.BulkGradesRequest, actor models.Actor) (*models.BulkGradesResult, error) {
	if !actor.Authorized {
		return nil, unauthorized("entering grades")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	for _, entry := range req.Entries {
		if err := s.checkValue(entry.Value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s: %s", entry.StudentID, err.Message))
		}
	}

	class := NormalizeClassLabel(req.ClassLabel)
	result := &models.BulkGradesResult{}
	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		// optimistic stores replay fn after a conflict
		result.Applied, result.Ignored = []string{}, []string{}
		for _, entry := range req.Entries {
			student, _, ok := ds.Find(entry.StudentID)
			if !ok || NormalizeClassLabel(student.ClassLabel) != class {
				result.Ignored = append(result.Ignored, entry.StudentID)
				continue
			}
			upsertGrade(student, s.newGrade(req.Subject, req.Term, entry.Value, req.Coefficient, req.Recorder, actor))
			result.Applied = append(result.Applied, entry.StudentID)
		}
		if len(result.Applied) == 0 {
			return errNothingToDo
		}
		return nil
	})
	if err != nil && err != errNothingToDo {
		return nil, storeError(err, "failed to record grades")
	}

	s.logger.Info("bulk grades recorded",
		zap.String("classe", class),
		zap.String("matiere", req.Subject),
		zap.Int("applied", len(result.Applied)),
		zap.Int("ignored", len(result.Ignored)),
	)
	return result, nil
}

// ReportCard lists a student's grades for one term (every term when empty)
// with their coefficient-weighted average.
func (s *GradeService) ReportCard(ctx context.Context, studentID, term string) (*models.ReportCard, error) {
	var card *models.ReportCard
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		student, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		card = buildReportCard(*student, term)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to build report card")
	}
	return card, nil
}

func buildReportCard(student models.Student, term string) *models.ReportCard {
	card := &models.ReportCard{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		ClassLabel:  student.ClassLabel,
		Term:        collapseSpaces(term),
		Grades:      []models.Grade{},
	}
	var weighted, weights float64
	for _, g := range student.Grades {
		if card.Term != "" && !equalFoldTrim(g.Term, card.Term) {
			continue
		}
		card.Grades = append(card.Grades, g)
		coef := g.Coefficient
		if coef <= 0 {
			coef = 1
		}
		weighted += g.Value * coef
		weights += coef
	}
	sort.SliceStable(card.Grades, func(i, j int) bool {
		if card.Grades[i].Subject != card.Grades[j].Subject {
			return card.Grades[i].Subject < card.Grades[j].Subject
		}
		return card.Grades[i].Term < card.Grades[j].Term
	})
	if weights > 0 {
		avg := math.Round(weighted/weights*100) / 100
		card.WeightedAverage = &avg
	}
	return card
}

func (s *GradeService) checkValue(v float64) *appErrors.Error {
	if math.IsNaN(v) || v < s.bounds.Min || v > s.bounds.Max {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("valeur must be between %g and %g", s.bounds.Min, s.bounds.Max))
	}
	return nil
}

func (s *GradeService) newGrade(subject, term string, value, coefficient float64, recorder string, actor models.Actor) models.Grade {
	if coefficient <= 0 {
		coefficient = 1
	}
	recorder = collapseSpaces(recorder)
	if recorder == "" {
		recorder = actor.Name
	}
	return models.Grade{
		Subject:     collapseSpaces(subject),
		Term:        collapseSpaces(term),
		Value:       value,
		Coefficient: coefficient,
		Recorder:    recorder,
		RecordedAt:  s.now().Truncate(time.Second),
	}
}

func upsertGrade(student *models.Student, grade models.Grade) {
	if i := student.FindGrade(grade.Subject, grade.Term); i >= 0 {
		student.Grades[i] = grade
		return
	}
	student.Grades = append(student.Grades, grade)
}
