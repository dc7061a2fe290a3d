package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/server/http/dto"
	"github.com/polkiloo/boxoffice/internal/server/http/middleware"
)

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domainErrors.ErrOrderNotFound)
		return 0, false
	}
	return id, true
}

var errorCodes = []struct {
	target error
	status int
	code   string
}{
	{domainErrors.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{domainErrors.ErrItemUnavailable, http.StatusUnprocessableEntity, "item_unavailable"},
	{domainErrors.ErrInsufficientStock, http.StatusConflict, "out_of_stock"},
	{domainErrors.ErrPriceMismatch, http.StatusConflict, "price_changed"},
	{domainErrors.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state"},
	{domainErrors.ErrExpired, http.StatusGone, "expired"},
	{domainErrors.ErrInvalidCallback, http.StatusBadRequest, "invalid_callback"},
}

// writeError maps the domain error taxonomy onto a status and error body.
// Unknown errors are reported as internal without leaking their text.
func writeError(c *gin.Context, err error) {
	for _, e := range errorCodes {
		if !errors.Is(err, e.target) {
			continue
		}
		resp := dto.ErrorResponse{Error: e.code, Message: err.Error()}
		var mismatch *domainErrors.PriceMismatchError
		if errors.As(err, &mismatch) {
			total := mismatch.Computed
			resp.Total = &total
		}
		c.AbortWithStatusJSON(e.status, resp)
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal", Message: "internal error"})
}

func toCheckoutResponse(result *model.CheckoutResult) dto.CheckoutResponse {
	return dto.CheckoutResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.Number,
		Total:       result.Order.Total,
		ExpiresAt:   result.Order.ExpiresAt,
		Redirect: dto.RedirectResponse{
			Endpoint: result.Redirect.Endpoint,
			Fields:   result.Redirect.Fields,
		},
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:           order.ID,
		Number:       order.Number,
		Status:       string(order.Status),
		Subtotal:     order.Subtotal,
		Discount:     order.Discount,
		Total:        order.Total,
		PromoCode:    order.PromoCode,
		Items:        make([]dto.LineItemResponse, 0, len(order.Items)),
		CreatedAt:    order.CreatedAt,
		ExpiresAt:    order.ExpiresAt,
		PaidAt:       order.PaidAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
		CompletedAt:  order.CompletedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, dto.LineItemResponse{
			Type:      string(item.Type),
			EntryID:   item.EntryID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total(),
		})
	}
	for _, t := range order.Tickets {
		resp.Tickets = append(resp.Tickets, dto.TicketResponse{Code: t.Code, EntryID: t.EntryID, IssuedAt: t.IssuedAt})
	}
	return resp
}
