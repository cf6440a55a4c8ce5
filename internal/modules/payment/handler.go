package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vabboost/internal/pkg/response"
	"vabboost/internal/pkg/validator"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the webhook behind auth, which must verify the
// sender before the body is trusted.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth ...gin.HandlerFunc) {
	rg.POST("/payments/yookassa/webhook", append(auth, h.Webhook)...)
}

// Webhook godoc
// @Summary      YooKassa notification
// @Description  Reconciles payment and order status. 200 on success or idempotent no-op, 4xx on malformed or unknown, 5xx to request redelivery.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        body body WebhookEvent true "Gateway notification"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} map[string]interface{}
// @Failure      401 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Failure      500 {object} map[string]interface{}
// @Router       /payments/yookassa/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Unreadable body")
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), raw)
	if err != nil {
		var verrs *validator.Errors
		switch {
		case errors.As(err, &verrs):
			response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid webhook event", verrs.Fields)
		case errors.Is(err, ErrPaymentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "Payment not found")
		case errors.Is(err, ErrOrderMismatch), errors.Is(err, ErrAmountMismatch):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		default:
			response.Internal(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, WebhookResponse{Status: "ok", Changed: res.Changed})
}
