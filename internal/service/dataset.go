package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

type datasetRepository interface {
	View(ctx context.Context, fn func(*models.Dataset) error) error
	Update(ctx context.Context, fn func(*models.Dataset) error) error
}

// domainMetrics receives business counters; MetricsService implements it.
type domainMetrics interface {
	RecordRegistration(group models.Group)
	RecordPayment(amount int64)
	RecordImport(imported, skipped int)
	RecordNotification(delivered bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordRegistration(models.Group) {}
func (noopMetrics) RecordPayment(int64)             {}
func (noopMetrics) RecordImport(int, int)           {}
func (noopMetrics) RecordNotification(bool)         {}

func metricsOrNoop(m domainMetrics) domainMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// storeError keeps typed errors raised inside an update and wraps the rest.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "records were modified concurrently, retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFound(id string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotFound, "student "+id+" not found")
}

func unauthorized(action string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrUnauthorized, action+" requires an unlocked session")
}

// computeBalance derives the balance of a student under an overpayment policy.
func computeBalance(s models.Student, policy string) models.Balance {
	paid := s.Paid()
	remaining := s.TuitionFee - paid
	if remaining < 0 && policy != config.OverpaymentAllow {
		remaining = 0
	}
	return models.Balance{Total: s.TuitionFee, Paid: paid, Remaining: remaining}
}

func viewOf(s models.Student, group models.Group, policy string) models.StudentView {
	return models.StudentView{Student: s, Group: group, Balance: computeBalance(s, policy)}
}

func normalizeSurname(v string) string {
	return strings.ToUpper(collapseSpaces(v))
}

func normalizeGivenNames(v string) string {
	// a Caser keeps state, so each call gets its own
	return cases.Title(language.French).String(collapseSpaces(v))
}

func collapseSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// digitsOnly strips every non-digit rune from a phone number.
func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// errNothingToDo aborts an update without saving when the mutation turned out to be a no-op.
var errNothingToDo = errors.New("nothing to do")

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
