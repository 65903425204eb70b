package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpr89/wheeltrader/pkg/autotrader"
	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/ledger/repo"
)

// Handlers exposes the order lifecycle upward over HTTP. This layer is a
// thin I/O wrapper; every decision lives in the autotrader service.
type Handlers struct {
	svc    *autotrader.Service
	orders repo.IOrder
}

func NewHandlers(svc *autotrader.Service, orders repo.IOrder) *Handlers {
	return &Handlers{svc: svc, orders: orders}
}

// Register mounts the routes under /api/options.
func (h *Handlers) Register(r *gin.Engine) {
	g := r.Group("/api/options", RequestID())
	g.POST("/order", h.SaveOrder)
	g.GET("/orders", h.ListOrders)
	g.GET("/order/:id", h.GetOrder)
	g.DELETE("/order/:id", h.DeleteOrder)
	g.POST("/execute/:id", h.ExecuteOrder)
	g.POST("/cancel/:id", h.CancelOrder)
	g.GET("/check-orders", h.CheckOrders)
}

func (h *Handlers) SaveOrder(c *gin.Context) {
	var order model.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order payload"})
		return
	}
	if order.Quantity <= 0 {
		order.Quantity = 1
	}
	order.Status = model.OrderStatusPending
	order.Executed = false

	id, err := h.orders.Insert(c.Request.Context(), &order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": id})
}

func (h *Handlers) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var filter []model.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter = append(filter, model.OrderStatus(strings.TrimSpace(s)))
		}
	}

	orders, err := h.orders.List(c.Request.Context(), filter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handlers) GetOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handlers) DeleteOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.Status == model.OrderStatusProcessing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete an order the venue is working; cancel it first"})
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) ExecuteOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		return
	}

	result, err := h.svc.Execute(c.Request.Context(), id)
	if err != nil {
		c.JSON(executeStatusCode(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) CancelOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		c.JSON(executeStatusCode(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) CheckOrders(c *gin.Context) {
	result, err := h.svc.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func orderID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return 0, err
	}
	return id, nil
}

func executeStatusCode(err error) int {
	switch {
	case autotrader.IsOrderNotFound(err):
		return http.StatusNotFound
	case autotrader.IsInvalidState(err), autotrader.IsValidation(err):
		return http.StatusBadRequest
	case autotrader.IsConnection(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
