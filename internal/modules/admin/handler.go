package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vabboost/internal/middleware"
	"vabboost/internal/pkg/response"
	"vabboost/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the login endpoint on the /admin group.
func (h *Handler) RegisterPublicRoutes(admin *gin.RouterGroup) {
	admin.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts operator endpoints. The group must already carry
// AdminJWTAuth and AdminOnly.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/:ref", h.GetOrder)
	admin.PATCH("/orders/:ref/status", h.UpdateStatus)
	admin.PATCH("/orders/:ref/notes", h.UpdateNotes)
	admin.DELETE("/orders/:ref", h.CancelOrder)
	admin.GET("/stats", h.GetStats)
	admin.GET("/stats/revenue", h.GetRevenue)
	admin.GET("/stats/services", h.GetServiceStats)
}

// Login godoc
// @Summary      Operator login
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} map[string]interface{}
// @Failure      401 {object} map[string]interface{}
// @Router       /admin/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, err)
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// ListOrders godoc
// @Summary      List orders
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "Order status"
// @Param        date_from query string false "YYYY-MM-DD or RFC3339"
// @Param        date_to   query string false "YYYY-MM-DD or RFC3339"
// @Param        search    query string false "Order number or contact"
// @Param        sort      query string false "id|created_at|updated_at|amount|status"
// @Param        order     query string false "asc|desc"
// @Param        page      query int    false "Page" default(1)
// @Param        per_page  query int    false "Page size (10-100)" default(20)
// @Success      200 {object} OrderListResponse
// @Router       /admin/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	q := ListOrdersQuery{
		Status:   c.Query("status"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Search:   c.Query("search"),
		Sort:     c.DefaultQuery("sort", "created_at"),
		Order:    c.DefaultQuery("order", "desc"),
	}
	errs := &validator.Errors{}
	q.Page = intQuery(c, "page", errs)
	q.PerPage = intQuery(c, "per_page", errs)
	if err := errs.Err(); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.service.ListOrders(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetOrder godoc
// @Summary      Order details with payment and history
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Param        ref path string true "Order id or order number"
// @Success      200 {object} OrderDetails
// @Failure      404 {object} map[string]interface{}
// @Router       /admin/orders/{ref} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	d, err := h.service.GetOrder(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// UpdateStatus godoc
// @Summary      Change order status
// @Tags         Admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ref  path string true "Order id or order number"
// @Param        body body UpdateStatusRequest true "New status"
// @Success      200 {object} OrderDetails
// @Failure      409 {object} map[string]interface{}
// @Router       /admin/orders/{ref}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, err)
		return
	}
	d, err := h.service.UpdateStatus(c.Request.Context(), c.Param("ref"), req, c.GetString(middleware.CtxUsername))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// UpdateNotes godoc
// @Summary      Replace operator notes
// @Tags         Admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ref  path string true "Order id or order number"
// @Param        body body UpdateNotesRequest true "Notes"
// @Success      200 {object} OrderDetails
// @Failure      404 {object} map[string]interface{}
// @Router       /admin/orders/{ref}/notes [patch]
func (h *Handler) UpdateNotes(c *gin.Context) {
	var req UpdateNotesRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, err)
		return
	}
	d, err := h.service.UpdateNotes(c.Request.Context(), c.Param("ref"), req, c.GetString(middleware.CtxUsername))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// CancelOrder godoc
// @Summary      Cancel order
// @Description  Logical delete: the order is kept and moved to cancelled
// @Tags         Admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        ref  path string true "Order id or order number"
// @Param        body body CancelRequest false "Reason"
// @Success      200 {object} OrderDetails
// @Failure      409 {object} map[string]interface{}
// @Router       /admin/orders/{ref} [delete]
func (h *Handler) CancelOrder(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
			writeError(c, err)
			return
		}
	}
	d, err := h.service.CancelOrder(c.Request.Context(), c.Param("ref"), req, c.GetString(middleware.CtxUsername))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// GetStats godoc
// @Summary      Order statistics
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} repository.OrderStats
// @Router       /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// GetRevenue godoc
// @Summary      Revenue statistics
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Param        period     query string false "day|week|month|year" default(month)
// @Param        start_date query string false "YYYY-MM-DD or RFC3339"
// @Param        end_date   query string false "YYYY-MM-DD or RFC3339"
// @Success      200 {object} RevenueResponse
// @Failure      400 {object} map[string]interface{}
// @Router       /admin/stats/revenue [get]
func (h *Handler) GetRevenue(c *gin.Context) {
	resp, err := h.service.Revenue(c.Request.Context(), RevenueQuery{
		Period:    c.Query("period"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetServiceStats godoc
// @Summary      Per-service, per-region and rank range breakdown
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} repository.ServiceStats
// @Router       /admin/stats/services [get]
func (h *Handler) GetServiceStats(c *gin.Context) {
	st, err := h.service.ServiceStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

func intQuery(c *gin.Context, key string, errs *validator.Errors) int {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		errs.Add(key, "must be a positive integer")
		return 0
	}
	return n
}

func writeError(c *gin.Context, err error) {
	var verrs *validator.Errors
	switch {
	case errors.As(err, &verrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid request", verrs.Fields)
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid username or password")
	case errors.Is(err, ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Order not found")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, response.CodeInvalidTransition, err.Error())
	default:
		response.Internal(c, err)
	}
}
