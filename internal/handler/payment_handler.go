package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

type paymentService interface {
	RecordPayment(ctx context.Context, studentID string, req dto.RecordPaymentRequest, actor models.Actor) (*models.PaymentReceipt, error)
	Balance(ctx context.Context, studentID string) (*models.Balance, error)
	History(ctx context.Context, studentID string) ([]models.Payment, error)
	Receipt(ctx context.Context, studentID string, index int) ([]byte, error)
}

// PaymentHandler exposes the payment ledger.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Record godoc
// @Summary Record a tuition payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.RecordPaymentRequest true "Payment"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload"))
		return
	}
	receipt, err := h.payments.RecordPayment(c.Request.Context(), c.Param("id"), req, middleware.ActorFor(c, models.ScopePayments))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// History godoc
// @Summary List the payments of a student
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	payments, err := h.payments.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Balance godoc
// @Summary Current balance of a student
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balance [get]
func (h *PaymentHandler) Balance(c *gin.Context) {
	balance, err := h.payments.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param index path int true "Payment number, starting at 1"
// @Success 200 {file} binary
// @Router /students/{id}/payments/{index}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "index must be a positive integer"))
		return
	}
	id := c.Param("id")
	pdf, err := h.payments.Receipt(c.Request.Context(), id, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("recu-%s-%d.pdf", id, index), response.MIMEPDF, pdf)
}
