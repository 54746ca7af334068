package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionUnlock        = "UNLOCK"
	AuditActionPayment       = "PAYMENT_RECORD"
	AuditActionStudentDelete = "STUDENT_DELETE"
	AuditActionGradeSet      = "GRADE_SET"
	AuditActionGradeBulk     = "GRADE_BULK_SET"
	AuditActionImport        = "STUDENT_IMPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Actor      *string   `db:"actor" json:"actor,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
