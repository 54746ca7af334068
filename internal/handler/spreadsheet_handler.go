package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

type spreadsheetService interface {
	Export(ctx context.Context) ([]byte, error)
	ExportCSV(ctx context.Context) ([]byte, error)
	RosterPDF(ctx context.Context, classLabel string) ([]byte, error)
	Import(ctx context.Context, filename string, r io.Reader, actor models.Actor) (*models.ImportResult, error)
}

// SpreadsheetHandler exposes spreadsheet import and export.
type SpreadsheetHandler struct {
	sheets   spreadsheetService
	maxBytes int64
	now      func() time.Time
}

// NewSpreadsheetHandler constructs SpreadsheetHandler. Uploads larger than maxBytes are refused.
func NewSpreadsheetHandler(sheets spreadsheetService, maxBytes int64) *SpreadsheetHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &SpreadsheetHandler{sheets: sheets, maxBytes: maxBytes, now: time.Now}
}

// ExportXLSX godoc
// @Summary Export every student as a workbook
// @Tags Spreadsheets
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /export/xlsx [get]
func (h *SpreadsheetHandler) ExportXLSX(c *gin.Context) {
	payload, err := h.sheets.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, h.filename("xlsx"), response.MIMEXLSX, payload)
}

// ExportCSV godoc
// @Summary Export every student as CSV
// @Tags Spreadsheets
// @Produce text/csv
// @Success 200 {file} binary
// @Router /export/csv [get]
func (h *SpreadsheetHandler) ExportCSV(c *gin.Context) {
	payload, err := h.sheets.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, h.filename("csv"), response.MIMECSV, payload)
}

// RosterPDF godoc
// @Summary Printable class list
// @Tags Spreadsheets
// @Produce application/pdf
// @Param classe query string false "Class label, every class when empty"
// @Success 200 {file} binary
// @Router /export/roster.pdf [get]
func (h *SpreadsheetHandler) RosterPDF(c *gin.Context) {
	payload, err := h.sheets.RosterPDF(c.Request.Context(), c.Query("classe"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "liste-eleves.pdf", response.MIMEPDF, payload)
}

// Import godoc
// @Summary Import students from a workbook
// @Tags Spreadsheets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /import [post]
func (h *SpreadsheetHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxBytes)))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	actor := models.Actor{}
	if claims := middleware.ClaimsFromContext(c); claims != nil {
		actor.Name = claims.Operator
	}
	result, err := h.sheets.Import(c.Request.Context(), header.Filename, file, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
		"imported": len(result.Imported),
		"skipped":  len(result.Skipped),
	})
}

func (h *SpreadsheetHandler) filename(ext string) string {
	return fmt.Sprintf("inscriptions-%s.%s", h.now().Format("20060102-1504"), ext)
}
