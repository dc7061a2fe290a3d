package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
)

const maxCallbackSize = 64 << 10

// PaymentHandler receives gateway callbacks and sandbox confirmations.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Callback handles POST /api/payments/callback. The gateway expects a
// plain-text acknowledgement. Callbacks for attempts that are already closed
// are recorded by the facade and acknowledged so the gateway stops retrying.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackSize))
	if err != nil || len(body) == 0 {
		writeError(c, domainErrors.ErrInvalidCallback)
		return
	}
	err = h.facade.HandleCallback(c.Request.Context(), body)
	if err != nil && !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

// ConfirmSandbox handles POST /api/payments/sandbox/:id/confirm.
func (h *PaymentHandler) ConfirmSandbox(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.facade.ConfirmSandbox(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}
