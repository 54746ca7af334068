package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

type unlocker interface {
	Unlock(ctx context.Context, req models.UnlockRequest, current *models.JWTClaims) (*models.UnlockResponse, error)
}

// AuthHandler wires HTTP endpoints to the unlock gate.
type AuthHandler struct {
	service unlocker
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc unlocker) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Unlock godoc
// @Summary Unlock a protected action
// @Description Exchange the shared secret of an action (payments, deletions, grades) for a short-lived token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.UnlockRequest true "Unlock payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/unlock [post]
func (h *AuthHandler) Unlock(c *gin.Context) {
	var req models.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid unlock payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.service.Unlock(c.Request.Context(), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
