package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	sessionCookie  = "AUTH_SESSION"
	sessionHeader  = "X-Session-Key"
	adminHeader    = "X-Admin-Token"
	sessionCtxKey  = "session_key"
	degradedNotice = "saved in memory only: backing file could not be written"
)

// ProductCatalog is the catalog surface exposed over HTTP
type ProductCatalog interface {
	List() []models.Product
	GetByID(id string) (models.Product, bool)
	Upsert(p models.Product) error
	Delete(id string) error
}

// CartStore resolves session carts
type CartStore interface {
	AddItem(sessionKey, productID string, qty int) (*cart.Cart, error)
	Peek(sessionKey string) (*cart.Cart, bool)
	ClearCart(sessionKey string)
}

// Handler contains HTTP handlers
type Handler struct {
	catalog       ProductCatalog
	carts         CartStore
	orderService  *service.OrderService
	reportService *service.ReportService
	adminToken    string
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler. An empty adminToken leaves admin
// routes to upstream authorization.
func NewHandler(
	catalog ProductCatalog,
	carts CartStore,
	orderService *service.OrderService,
	reportService *service.ReportService,
	adminToken string,
) *Handler {
	return &Handler{
		catalog:       catalog,
		carts:         carts,
		orderService:  orderService,
		reportService: reportService,
		adminToken:    adminToken,
		logger:        util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/orders/:id", h.getOrder)

		shop := v1.Group("", h.requireSession)
		shop.GET("/cart", h.getCart)
		shop.POST("/cart/items", h.addCartItem)
		shop.PUT("/cart/items/:id", h.updateCartItem)
		shop.DELETE("/cart/items/:id", h.removeCartItem)
		shop.DELETE("/cart", h.clearCart)
		shop.POST("/checkout", h.checkout)

		admin := v1.Group("/admin", h.requireAdmin)
		admin.GET("/products", h.listProducts)
		admin.POST("/products", h.upsertProduct)
		admin.DELETE("/products/:id", h.deleteProduct)
		admin.GET("/orders", h.listOrders)
		admin.PUT("/orders/:id/status", h.updateOrderStatus)
		admin.GET("/reports/dashboard", h.dashboard)
		admin.GET("/reports/sales", h.sales)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// requireSession resolves the caller's session key or rejects the request
func (h *Handler) requireSession(c *gin.Context) {
	key, err := c.Cookie(sessionCookie)
	if err != nil || key == "" {
		key = c.GetHeader(sessionHeader)
	}
	if key == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Please login first!",
		})
		return
	}
	c.Set(sessionCtxKey, key)
	c.Next()
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if h.adminToken != "" && c.GetHeader(adminHeader) != h.adminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Admin authorization required",
		})
		return
	}
	c.Next()
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// respondMutation writes body with code, adding a warning when the change
// only reached memory. Other errors become 500s.
func (h *Handler) respondMutation(c *gin.Context, code int, body gin.H, err error) {
	if err != nil {
		if !errors.Is(err, store.ErrPersistence) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Operation failed",
				"details": err.Error(),
			})
			return
		}
		body["warning"] = degradedNotice
	}
	c.JSON(code, body)
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return 0, false
	}
	return orderID, true
}
