package api

import (
	"errors"
	"net/http"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
)

// listProducts handles catalog listing
func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List())
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	p, ok := h.catalog.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}
	c.JSON(http.StatusOK, p)
}

// upsertProduct adds or replaces a product
func (h *Handler) upsertProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.catalog.Upsert(p)
	if errors.Is(err, store.ErrInvalidProduct) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid product",
			"details": err.Error(),
		})
		return
	}
	h.respondMutation(c, http.StatusOK, gin.H{"success": true, "message": "Added"}, err)
}

// deleteProduct removes a product
func (h *Handler) deleteProduct(c *gin.Context) {
	err := h.catalog.Delete(c.Param("id"))
	h.respondMutation(c, http.StatusOK, gin.H{"success": true, "message": "Deleted"}, err)
}
