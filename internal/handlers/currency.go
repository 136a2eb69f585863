package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akovalyov/currex/pkg/metrics"
	"github.com/akovalyov/currex/pkg/response"

	"github.com/akovalyov/currex/internal/services"
)

// CurrencyHandler exposes the currency conversion proxy.
type CurrencyHandler struct {
	currency *services.CurrencyService
}

func NewCurrencyHandler(currency *services.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currency: currency}
}

type exchangeRequest struct {
	From   string  `json:"from_currency" validate:"required,len=3,alpha"`
	To     string  `json:"to_currency" validate:"required,len=3,alpha"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// GET /api/currency/list
func (h *CurrencyHandler) List(c *gin.Context) {
	currencies, err := h.currency.List(c.Request.Context())
	if err != nil {
		metrics.CurrencyUpstream.WithLabelValues("list", "failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.CurrencyUpstream.WithLabelValues("list", "success").Inc()
	response.Success(c, http.StatusOK, gin.H{"currencies": currencies})
}

// POST /api/currency/exchange
func (h *CurrencyHandler) Exchange(c *gin.Context) {
	var req exchangeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	conversion, err := h.currency.Convert(c.Request.Context(), services.ConvertInput{
		From:   req.From,
		To:     req.To,
		Amount: req.Amount,
	})
	if err != nil {
		if errors.Is(err, services.ErrCurrencyUnavailable) {
			metrics.CurrencyUpstream.WithLabelValues("convert", "failure").Inc()
		}
		response.Error(c, err)
		return
	}

	metrics.CurrencyUpstream.WithLabelValues("convert", "success").Inc()
	response.Success(c, http.StatusOK, conversion)
}
