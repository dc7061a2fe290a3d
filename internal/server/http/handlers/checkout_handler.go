package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/server/http/dto"
)

// CheckoutHandler manages buyer order endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Create handles POST /api/checkout/orders.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domainErrors.ErrInvalidRequest)
		return
	}

	items := make([]model.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.CheckoutItem{
			Type:     model.ItemType(item.Type),
			EntryID:  item.EntryID,
			Quantity: item.Quantity,
		})
	}
	result, err := h.facade.Checkout(c.Request.Context(), model.CheckoutRequest{
		UserID: CurrentUserID(c),
		Items:  items,
		Billing: model.BillingContact{
			Name:    req.Billing.Name,
			Phone:   req.Billing.Phone,
			Email:   req.Billing.Email,
			Address: req.Billing.Address,
		},
		PromoCode:   req.PromoCode,
		ClientTotal: req.ClientTotal,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCheckoutResponse(result))
}

// Get handles GET /api/checkout/orders/:id.
func (h *CheckoutHandler) Get(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.facade.Order(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Repay handles POST /api/checkout/orders/:id/repay.
func (h *CheckoutHandler) Repay(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	result, err := h.facade.Repay(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(result))
}

// Cancel handles POST /api/checkout/orders/:id/cancel.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.facade.Cancel(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}
