package order

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vabboost/internal/pkg/response"
	"vabboost/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the public order endpoints. Extra middleware (rate
// limiting) applies to order submission only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, submit ...gin.HandlerFunc) {
	rg.POST("/orders", append(submit, h.CreateOrder)...)
	rg.GET("/orders/:ref", h.GetOrder)
	rg.GET("/orders/:ref/status", h.GetStatus)
}

// CreateOrder godoc
// @Summary      Submit order
// @Description  Validates and prices the order, creates the gateway payment and returns the checkout URL
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        body body CreateOrderRequest true "Order"
// @Success      201 {object} CreateOrderResponse
// @Failure      400 {object} map[string]interface{}
// @Failure      502 {object} map[string]interface{}
// @Router       /orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), req, RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

// GetOrder godoc
// @Summary      Order details
// @Tags         Orders
// @Produce      json
// @Param        ref path string true "Order id or order number"
// @Success      200 {object} OrderView
// @Failure      404 {object} map[string]interface{}
// @Router       /orders/{ref} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	v, err := h.service.GetOrder(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// GetStatus godoc
// @Summary      Order and payment status
// @Description  Read-only, safe to poll
// @Tags         Orders
// @Produce      json
// @Param        ref path string true "Order id or order number"
// @Success      200 {object} repository.OrderStatusView
// @Failure      404 {object} map[string]interface{}
// @Router       /orders/{ref}/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	v, err := h.service.GetStatus(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, http.StatusOK, v)
}

func writeError(c *gin.Context, err error) {
	var (
		verrs  *validator.Errors
		failed *PaymentFailedError
	)
	switch {
	case errors.As(err, &verrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid order request", verrs.Fields)
	case errors.Is(err, ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Order not found")
	case errors.As(err, &failed):
		_ = c.Error(err)
		response.ErrorWithDetails(c, http.StatusBadGateway, response.CodePaymentFailed, "payment creation failed",
			gin.H{"order_number": failed.OrderNumber, "order_status": "cancelled"})
	default:
		response.Internal(c, err)
	}
}
