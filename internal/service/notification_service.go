package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	"github.com/noah-isme/scolarite-api/pkg/jobs"
)

const jobTypePaymentSMS = "payment_sms"

// minPhoneDigits is the shortest number the SMS sink accepts.
const minPhoneDigits = 8

// ErrInvalidPhone is returned by senders for numbers that cannot be reached.
var ErrInvalidPhone = errors.New("invalid phone number")

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// ConsoleSMSSender writes messages to the log instead of a gateway.
type ConsoleSMSSender struct {
	logger *zap.Logger
}

// NewConsoleSMSSender constructs a log-backed SMS sender.
func NewConsoleSMSSender(logger *zap.Logger) *ConsoleSMSSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSMSSender{logger: logger.Named("sms")}
}

// Send succeeds when the number keeps at least eight digits once stripped.
func (s *ConsoleSMSSender) Send(ctx context.Context, phone, message string) error {
	digits := digitsOnly(phone)
	if len(digits) < minPhoneDigits {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	s.logger.Info("sms sent", zap.String("to", digits), zap.String("message", message))
	return nil
}

type jobQueue interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job jobs.Job) error
}

// NotificationService sends payment confirmations through a worker pool so
// the ledger never waits on the SMS sink.
type NotificationService struct {
	sender  SMSSender
	queue   jobQueue
	enabled bool
	school  string
	metrics domainMetrics
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(sender SMSSender, cfg config.NotificationConfig, metrics domainMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewConsoleSMSSender(logger)
	}
	svc := &NotificationService{
		sender:  sender,
		enabled: cfg.Enabled,
		school:  cfg.SchoolName,
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains pending notifications.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// NotifyPayment queues a confirmation for the guardian. Failures are logged only.
func (s *NotificationService) NotifyPayment(notice models.PaymentNotice) {
	if !s.enabled {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypePaymentSMS, Payload: notice}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("payment notification dropped", zap.String("student_id", notice.StudentID), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(models.PaymentNotice)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	err := s.sender.Send(ctx, notice.Phone, s.paymentMessage(notice))
	if errors.Is(err, ErrInvalidPhone) {
		// retrying cannot fix the number
		s.metrics.RecordNotification(false)
		s.logger.Warn("payment notification not delivered", zap.String("student_id", notice.StudentID), zap.Error(err))
		return nil
	}
	if err != nil {
		s.metrics.RecordNotification(false)
		return err
	}
	s.metrics.RecordNotification(true)
	return nil
}

func (s *NotificationService) paymentMessage(n models.PaymentNotice) string {
	msg := fmt.Sprintf("Paiement de %s reçu le %s pour %s. Reste à payer : %s.",
		formatFCFA(n.Amount), n.PaidAt.Format("02/01/2006"), n.StudentName, formatFCFA(n.Remaining))
	if s.school != "" {
		msg = s.school + " : " + msg
	}
	return msg
}
