package pricing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/response"
	"vabboost/internal/pkg/validator"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/pricing/quote", h.Quote)
}

// Quote godoc
// @Summary      Price quote
// @Description  Calculates a price with breakdown. Nothing is stored.
// @Tags         Pricing
// @Accept       json
// @Produce      json
// @Param        body body QuoteRequest true "Quote parameters"
// @Success      200 {object} QuoteResponse
// @Router       /pricing/quote [post]
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		writeValidation(c, err)
		return
	}
	errs := validator.Struct(req)
	if err := errs.Err(); err != nil {
		writeValidation(c, err)
		return
	}

	q, err := h.engine.Calculate(domain.ServiceType(req.ServiceType), req.Params())
	if err != nil {
		writeValidation(c, err)
		return
	}
	response.Success(c, http.StatusOK, QuoteResponse{
		ServiceType:    req.ServiceType,
		Price:          q.Price,
		FormattedPrice: FormatRub(q.Price),
		Breakdown:      q.Breakdown,
	})
}

func writeValidation(c *gin.Context, err error) {
	var verrs *validator.Errors
	if errors.As(err, &verrs) {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid quote request", verrs.Fields)
		return
	}
	if errors.Is(err, ErrUnknownService) || errors.Is(err, ErrNotPriceable) {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid quote request",
			[]validator.FieldError{{Field: "service_type", Message: err.Error()}})
		return
	}
	response.Internal(c, err)
}

// FormatRub renders 12345 as "12 345 ₽".
func FormatRub(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := ""
	if v < 0 {
		neg, s = "-", s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i])
	}
	return neg + string(out) + " ₽"
}
