package api

import (
	"errors"
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartResponse struct {
	Items      []models.CartLine `json:"items"`
	CartCount  int               `json:"cartCount"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
}

// sessionCart returns the session's cart, or nil when it has none yet
func (h *Handler) sessionCart(c *gin.Context) *cart.Cart {
	crt, _ := h.carts.Peek(c.GetString(sessionCtxKey))
	return crt
}

func renderCart(crt *cart.Cart) cartResponse {
	if crt == nil {
		return cartResponse{Items: []models.CartLine{}, TotalPrice: decimal.Zero}
	}
	lines, total := crt.Snapshot()
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return cartResponse{Items: lines, CartCount: count, TotalPrice: total}
}

// getCart returns the cart with the summed quantity as cartCount
func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, renderCart(h.sessionCart(c)))
}

// addCartItem adds units of a product; cartCount is the number of lines
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	crt, err := h.carts.AddItem(c.GetString(sessionCtxKey), req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, cart.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	case errors.Is(err, cart.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	util.CartOperationsTotal.WithLabelValues("add").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cartCount": crt.Len(),
		"message":   "Added to cart!",
	})
}

// updateCartItem sets the quantity of a line; zero removes it
func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	crt := h.sessionCart(c)
	if crt != nil {
		crt.UpdateQuantity(c.Param("id"), *req.Quantity)
	}
	util.CartOperationsTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, renderCart(crt))
}

// removeCartItem deletes a line
func (h *Handler) removeCartItem(c *gin.Context) {
	count := 0
	if crt := h.sessionCart(c); crt != nil {
		crt.RemoveItem(c.Param("id"))
		count = crt.Len()
	}
	util.CartOperationsTotal.WithLabelValues("remove").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cartCount": count,
	})
}

// clearCart drops the session's cart
func (h *Handler) clearCart(c *gin.Context) {
	h.carts.ClearCart(c.GetString(sessionCtxKey))
	util.CartOperationsTotal.WithLabelValues("clear").Inc()
	c.Status(http.StatusNoContent)
}
