package api

import (
	"errors"
	"net/http"

	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// checkout places an order for the session's cart
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.orderService.Checkout(c.Request.Context(), c.GetString(sessionCtxKey), &req)
	switch {
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrInvalidCheckout):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Checkout rejected",
			"details": err.Error(),
		})
		return
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Checkout already in progress",
		})
		return
	case order == nil:
		h.logger.Error("Checkout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to place order",
			"details": err.Error(),
		})
		return
	}

	h.respondMutation(c, http.StatusCreated, gin.H{"order": order}, err)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(orderID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, order)
}

// listOrders returns every order
func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.orderService.ListOrders())
}

// updateOrderStatus rewrites an order's status
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	found, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if errors.Is(err, store.ErrInvalidStatus) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid status",
			"details": err.Error(),
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}
	h.respondMutation(c, http.StatusOK, gin.H{"success": true, "status": req.Status}, err)
}

// dashboard returns the admin dashboard summary
func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.reportService.Dashboard(c.Request.Context()))
}

// sales returns monthly and per-product sales
func (h *Handler) sales(c *gin.Context) {
	c.JSON(http.StatusOK, h.reportService.Sales(c.Request.Context()))
}
