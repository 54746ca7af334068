package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Payments    *PaymentHandler
	Grades      *GradeHandler
	Spreadsheet *SpreadsheetHandler
	Metrics     *MetricsHandler
}

// AuditFunc builds the audit middleware for an action on a resource.
type AuditFunc func(action, resource string) gin.HandlerFunc

// RegisterRoutes mounts the API on group. gate attaches unlock claims; audit
// may be nil.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, gate gin.HandlerFunc, audit AuditFunc) {
	if audit == nil {
		audit = func(string, string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	}
	if gate != nil {
		group.Use(gate)
	}

	group.POST("/auth/unlock", h.Auth.Unlock)

	students := group.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Register)
	students.GET("/by-class", h.Students.ListByClass)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", audit(models.AuditActionStudentDelete, "student"), h.Students.Delete)

	students.GET("/:id/payments", h.Payments.History)
	students.POST("/:id/payments", audit(models.AuditActionPayment, "student"), h.Payments.Record)
	students.GET("/:id/payments/:index/receipt", h.Payments.Receipt)
	students.GET("/:id/balance", h.Payments.Balance)

	students.PUT("/:id/grades", audit(models.AuditActionGradeSet, "student"), h.Grades.Set)
	students.GET("/:id/report-card", h.Grades.ReportCard)
	group.POST("/grades/bulk", audit(models.AuditActionGradeBulk, "grades"), h.Grades.Bulk)

	group.GET("/export/xlsx", h.Spreadsheet.ExportXLSX)
	group.GET("/export/csv", h.Spreadsheet.ExportCSV)
	group.GET("/export/roster.pdf", h.Spreadsheet.RosterPDF)
	group.POST("/import", audit(models.AuditActionImport, "student"), h.Spreadsheet.Import)

	if h.Metrics != nil {
		group.GET("/metrics/summary", h.Metrics.Summary)
	}
}
