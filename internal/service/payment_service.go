package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/export"
)

// paymentNotifier is told about every recorded payment. It must not block.
type paymentNotifier interface {
	NotifyPayment(notice models.PaymentNotice)
}

type receiptRenderer interface {
	RenderFields(title string, fields []export.Field, footer string) ([]byte, error)
}

// PaymentService implements the payment ledger.
type PaymentService struct {
	repo      datasetRepository
	notifier  paymentNotifier
	pdf       receiptRenderer
	validator *validator.Validate
	logger    *zap.Logger
	metrics   domainMetrics
	ledger    config.LedgerConfig
	school    string
	now       func() time.Time
}

// NewPaymentService constructs a PaymentService. notifier may be nil.
func NewPaymentService(repo datasetRepository, notifier paymentNotifier, ledger config.LedgerConfig, schoolName string, metrics domainMetrics, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if ledger.OverpaymentPolicy == "" {
		ledger.OverpaymentPolicy = config.OverpaymentReject
	}
	return &PaymentService{
		repo:      repo,
		notifier:  notifier,
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		metrics:   metricsOrNoop(metrics),
		ledger:    ledger,
		school:    schoolName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordPayment appends a payment to the student's ledger and returns the new balance.
func (s *PaymentService) RecordPayment(ctx context.Context, studentID string, req dto.RecordPaymentRequest, actor models.Actor) (*models.PaymentReceipt, error) {
	if !actor.Authorized {
		return nil, unauthorized("recording a payment")
	}
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be greater than zero")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	receivedBy := collapseSpaces(req.ReceivedBy)
	if receivedBy == "" {
		receivedBy = actor.Name
	}
	payment := models.Payment{
		Date:       s.now().Truncate(time.Second),
		Amount:     req.Amount,
		Mode:       collapseSpaces(req.Mode),
		ReceivedBy: receivedBy,
	}

	var (
		receipt models.PaymentReceipt
		notice  models.PaymentNotice
	)
	err := s.repo.Update(ctx, func(ds *models.Dataset) error {
		student, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		if s.ledger.OverpaymentPolicy == config.OverpaymentReject {
			if remaining := student.TuitionFee - student.Paid(); req.Amount > remaining {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("montant %d exceeds remaining balance %d", req.Amount, max(remaining, 0)))
			}
		}
		student.Payments = append(student.Payments, payment)
		balance := computeBalance(*student, s.ledger.OverpaymentPolicy)
		receipt = models.PaymentReceipt{
			StudentID: studentID,
			Index:     len(student.Payments),
			Payment:   payment,
			Balance:   balance,
		}
		notice = models.PaymentNotice{
			StudentID:   studentID,
			StudentName: student.FullName(),
			Phone:       student.GuardianPhone,
			Amount:      payment.Amount,
			Remaining:   balance.Remaining,
			PaidAt:      payment.Date,
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to record payment")
	}

	s.metrics.RecordPayment(payment.Amount)
	s.logger.Info("payment recorded",
		zap.String("student_id", studentID),
		zap.Int64("montant", payment.Amount),
		zap.Int64("reste", receipt.Balance.Remaining),
		zap.String("actor", actor.Name),
	)
	if s.notifier != nil {
		s.notifier.NotifyPayment(notice)
	}
	return &receipt, nil
}

// Balance computes the current balance of a student.
func (s *PaymentService) Balance(ctx context.Context, studentID string) (*models.Balance, error) {
	var balance models.Balance
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		student, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		balance = computeBalance(*student, s.ledger.OverpaymentPolicy)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to compute balance")
	}
	return &balance, nil
}

// History returns the payments of a student in recording order.
func (s *PaymentService) History(ctx context.Context, studentID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		student, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		payments = append([]models.Payment{}, student.Payments...)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to load payments")
	}
	return payments, nil
}

// Receipt renders a PDF receipt for the index-th payment (1-based).
func (s *PaymentService) Receipt(ctx context.Context, studentID string, index int) ([]byte, error) {
	var (
		student models.Student
		payment models.Payment
		paid    int64
	)
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		found, _, ok := ds.Find(studentID)
		if !ok {
			return notFound(studentID)
		}
		if index < 1 || index > len(found.Payments) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("payment %d not found", index))
		}
		student = *found
		payment = found.Payments[index-1]
		for _, p := range found.Payments[:index] {
			paid += p.Amount
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to load payment")
	}

	remaining := student.TuitionFee - paid
	if remaining < 0 && s.ledger.OverpaymentPolicy != config.OverpaymentAllow {
		remaining = 0
	}
	fields := []export.Field{
		{Label: "Reçu n°", Value: fmt.Sprintf("%s-%d", shortID(student.ID), index)},
		{Label: "Élève", Value: student.FullName()},
		{Label: "Classe", Value: student.ClassLabel},
		{Label: "Date", Value: payment.Date.Format("02/01/2006 15:04")},
		{Label: "Montant", Value: formatFCFA(payment.Amount)},
		{Label: "Mode", Value: payment.Mode},
		{Label: "Reçu par", Value: payment.ReceivedBy},
		{Label: "Total payé", Value: formatFCFA(paid)},
		{Label: "Reste à payer", Value: formatFCFA(remaining)},
	}
	title := "Reçu de paiement"
	if s.school != "" {
		title = s.school + " - " + title
	}
	doc, err := s.pdf.RenderFields(title, fields, "Scolarité totale : "+formatFCFA(student.TuitionFee))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return doc, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatFCFA renders an amount with space thousand separators.
func formatFCFA(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[i])
	}
	return sign + string(out) + " FCFA"
}
