package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// StudentService implements the student registry.
type StudentService struct {
	repo      datasetRepository
	policy    *ClassificationPolicy
	validator *validator.Validate
	logger    *zap.Logger
	metrics   domainMetrics
	ledger    config.LedgerConfig
	now       func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo datasetRepository, policy *ClassificationPolicy, ledger config.LedgerConfig, metrics domainMetrics, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy == nil {
		policy = NewClassificationPolicy(nil)
	}
	if ledger.OverpaymentPolicy == "" {
		ledger.OverpaymentPolicy = config.OverpaymentReject
	}
	return &StudentService{
		repo:      repo,
		policy:    policy,
		validator: validate,
		logger:    logger,
		metrics:   metricsOrNoop(metrics),
		ledger:    ledger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register enrolls a new student and returns it with its group and balance.
func (s *StudentService) Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := requireText(
		namedValue{"nom", req.Surname},
		namedValue{"prenoms", req.GivenNames},
		namedValue{"classe", req.ClassLabel},
	); err != nil {
		return nil, err
	}
	phone := digitsOnly(req.GuardianPhone)
	if phone == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "telephone must contain digits")
	}

	student := models.Student{
		ID:            uuid.NewString(),
		Surname:       normalizeSurname(req.Surname),
		GivenNames:    normalizeGivenNames(req.GivenNames),
		ClassLabel:    NormalizeClassLabel(req.ClassLabel),
		Sex:           strings.ToUpper(req.Sex),
		BirthDate:     req.BirthDate,
		GuardianName:  collapseSpaces(req.GuardianName),
		GuardianPhone: phone,
		RegisteredBy:  collapseSpaces(req.RegisteredBy),
		EnrolledAt:    s.now().Truncate(time.Second),
		TuitionFee:    *req.TuitionFee,
		Grades:        []models.Grade{},
		Payments:      []models.Payment{},
	}
	group := s.policy.Classify(student.ClassLabel)

	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		ds.Append(group, student)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to register student")
	}

	s.metrics.RecordRegistration(group)
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("classe", student.ClassLabel), zap.String("groupe", string(group)))
	view := viewOf(student, group, s.ledger.OverpaymentPolicy)
	return &view, nil
}

// Get returns one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentView, error) {
	var view *models.StudentView
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		student, group, ok := ds.Find(id)
		if !ok {
			return notFound(id)
		}
		v := viewOf(*student, group, s.ledger.OverpaymentPolicy)
		view = &v
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	return view, nil
}

// Update replaces the editable fields of a student, moving it to the other
// group when its new class belongs there.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := requireText(
		namedValue{"nom", req.Surname},
		namedValue{"prenoms", req.GivenNames},
		namedValue{"classe", req.ClassLabel},
	); err != nil {
		return nil, err
	}
	phone := digitsOnly(req.GuardianPhone)
	if phone == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "telephone must contain digits")
	}

	var view models.StudentView
	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		current, group, ok := ds.Find(id)
		if !ok {
			return notFound(id)
		}
		updated := *current
		updated.Surname = normalizeSurname(req.Surname)
		updated.GivenNames = normalizeGivenNames(req.GivenNames)
		updated.ClassLabel = NormalizeClassLabel(req.ClassLabel)
		updated.Sex = strings.ToUpper(req.Sex)
		updated.BirthDate = req.BirthDate
		updated.GuardianName = collapseSpaces(req.GuardianName)
		updated.GuardianPhone = phone
		updated.TuitionFee = *req.TuitionFee

		if s.ledger.OverpaymentPolicy == config.OverpaymentReject && updated.TuitionFee < updated.Paid() {
			return appErrors.Clone(appErrors.ErrValidation, "scolarite cannot be lower than the amount already paid")
		}

		target := s.policy.Classify(updated.ClassLabel)
		if target == group {
			*current = updated
		} else {
			ds.Remove(id)
			ds.Append(target, updated)
			s.logger.Info("student moved between groups", zap.String("student_id", id), zap.String("from", string(group)), zap.String("to", string(target)))
		}
		view = viewOf(updated, target, s.ledger.OverpaymentPolicy)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to update student")
	}
	return &view, nil
}

// Delete removes a student together with its grades and payments. It reports
// false without touching the dataset when the id is unknown.
func (s *StudentService) Delete(ctx context.Context, id string, actor models.Actor) (bool, error) {
	if !actor.Authorized {
		return false, unauthorized("deleting a student")
	}

	var removed bool
	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		if _, _, ok := ds.Remove(id); !ok {
			return errNothingToDo
		}
		removed = true
		return nil
	})
	if err == errNothingToDo {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id), zap.String("actor", actor.Name))
	return removed, nil
}

// List returns a filtered page of students, primary group first.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentView, *models.Pagination, error) {
	page, size := normalizePage(filter.Page, filter.PageSize)

	var matched []models.StudentView
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		matched = s.filter(ds, filter)
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err, "failed to list students")
	}

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	items := make([]models.StudentView, end-start)
	copy(items, matched[start:end])
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByClass groups matching students by class label, classes sorted.
func (s *StudentService) ListByClass(ctx context.Context, filter models.StudentFilter) ([]models.ClassRoster, error) {
	var matched []models.StudentView
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		matched = s.filter(ds, filter)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to list students")
	}

	index := map[string]int{}
	rosters := []models.ClassRoster{}
	for _, v := range matched {
		i, ok := index[v.ClassLabel]
		if !ok {
			i = len(rosters)
			index[v.ClassLabel] = i
			rosters = append(rosters, models.ClassRoster{ClassLabel: v.ClassLabel, Group: v.Group, Students: []models.StudentView{}})
		}
		rosters[i].Students = append(rosters[i].Students, v)
	}
	sort.SliceStable(rosters, func(i, j int) bool { return rosters[i].ClassLabel < rosters[j].ClassLabel })
	return rosters, nil
}

func (s *StudentService) filter(ds *models.Dataset, filter models.StudentFilter) []models.StudentView {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	class := NormalizeClassLabel(filter.ClassLabel)

	out := []models.StudentView{}
	ds.Each(func(group models.Group, st *models.Student) {
		if filter.Group != "" && filter.Group != group {
			return
		}
		if class != "" && NormalizeClassLabel(st.ClassLabel) != class {
			return
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(st.Surname), search) &&
			!strings.Contains(strings.ToLower(st.GivenNames), search) {
			return
		}
		out = append(out, viewOf(*st, group, s.ledger.OverpaymentPolicy))
	})
	return out
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

type namedValue struct {
	name  string
	value string
}

// requireText rejects values that are empty once whitespace is collapsed;
// the required tag alone lets "   " through.
func requireText(fields ...namedValue) error {
	for _, f := range fields {
		if collapseSpaces(f.value) == "" {
			return appErrors.Clone(appErrors.ErrValidation, f.name+" must not be blank")
		}
	}
	return nil
}
