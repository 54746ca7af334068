package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// AuditRepository stores the audit trail of protected actions in Postgres.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record stores an audit log entry.
func (r *AuditRepository) Record(ctx context.Context, log *models.AuditLog) error {
	stamp(log)
	const query = `INSERT INTO audit_logs (id, actor, action, resource, resource_id, new_values, ip_address, user_agent, created_at) VALUES (:id, :actor, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit entries, optionally scoped to a resource id.
func (r *AuditRepository) ListRecent(ctx context.Context, resourceID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, actor, action, resource, resource_id, new_values, ip_address, user_agent, created_at FROM audit_logs`
	args := []interface{}{}
	if resourceID != "" {
		query += ` WHERE resource_id = $1`
		args = append(args, resourceID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// LogAuditRepository writes the audit trail to the structured log when no
// database is configured.
type LogAuditRepository struct {
	logger *zap.Logger
}

// NewLogAuditRepository constructs a log-backed audit sink.
func NewLogAuditRepository(logger *zap.Logger) *LogAuditRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAuditRepository{logger: logger.Named("audit")}
}

// Record logs the entry.
func (r *LogAuditRepository) Record(ctx context.Context, log *models.AuditLog) error {
	stamp(log)
	fields := []zap.Field{
		zap.String("id", log.ID),
		zap.String("action", log.Action),
		zap.String("resource", log.Resource),
		zap.String("ip", log.IPAddress),
		zap.Time("at", log.CreatedAt),
	}
	if log.Actor != nil {
		fields = append(fields, zap.String("actor", *log.Actor))
	}
	if log.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", *log.ResourceID))
	}
	if len(log.NewValues) > 0 {
		fields = append(fields, zap.ByteString("values", log.NewValues))
	}
	r.logger.Info("audit", fields...)
	return nil
}

func stamp(log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
}
