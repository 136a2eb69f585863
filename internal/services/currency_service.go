package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/akovalyov/currex/pkg/errors"
	"github.com/akovalyov/currex/pkg/httpclient"
	"github.com/akovalyov/currex/pkg/logger"
)

// ErrCurrencyUnavailable reports an upstream exchange-rate provider failure.
var ErrCurrencyUnavailable = apperrors.New("CURRENCY_UPSTREAM_UNAVAILABLE", "Currency data service is currently unavailable", http.StatusServiceUnavailable)

// CurrencyService proxies the upstream currency-data provider: listing
// supported symbols and converting between them. It holds no state of its
// own; every request validates against the provider's live symbol list.
type CurrencyService struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	log     *zap.Logger
}

// CurrencyConfig carries upstream connection settings.
type CurrencyConfig struct {
	APIKey  string
	BaseURL string
	Client  *httpclient.Client
}

// NewCurrencyService constructs a CurrencyService.
func NewCurrencyService(cfg CurrencyConfig) (*CurrencyService, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("currency service: base url is required")
	}

	client := cfg.Client
	if client == nil {
		client = httpclient.New(httpclient.Config{})
	}

	return &CurrencyService{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     logger.WithModule("currency"),
	}, nil
}

// ConvertInput names the source and target symbols and the amount to convert.
type ConvertInput struct {
	From   string
	To     string
	Amount float64
}

// Conversion is the outcome of a currency conversion.
type Conversion struct {
	From   string  `json:"from_currency"`
	To     string  `json:"to_currency"`
	Amount float64 `json:"amount"`
	Result float64 `json:"result"`
}

type upstreamPayload struct {
	Success    *bool             `json:"success"`
	Error      json.RawMessage   `json:"error"`
	Currencies map[string]string `json:"currencies"`
	Result     *float64          `json:"result"`
}

// List fetches the provider's supported symbol table (code to display name).
func (s *CurrencyService) List(ctx context.Context) (map[string]string, error) {
	payload, err := s.fetch(ctx, s.baseURL+"/list")
	if err != nil {
		return nil, err
	}
	return payload.Currencies, nil
}

// Convert validates both symbols against the live list and performs the
// conversion upstream. Unsupported symbols are client errors; upstream
// failures surface as ServiceUnavailable.
func (s *CurrencyService) Convert(ctx context.Context, input ConvertInput) (*Conversion, error) {
	from := strings.ToUpper(strings.TrimSpace(input.From))
	to := strings.ToUpper(strings.TrimSpace(input.To))

	currencies, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := currencies[from]; !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("currency from_currency = %s is not supported", from))
	}
	if _, ok := currencies[to]; !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("currency to_currency = %s is not supported", to))
	}

	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	query.Set("amount", strconv.FormatFloat(input.Amount, 'f', -1, 64))

	payload, err := s.fetch(ctx, s.baseURL+"/convert?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if payload.Result == nil {
		s.log.Error("upstream convert response missing result")
		return nil, ErrCurrencyUnavailable
	}

	return &Conversion{
		From:   from,
		To:     to,
		Amount: input.Amount,
		Result: *payload.Result,
	}, nil
}

// fetch performs an upstream GET and normalises every failure mode (transport
// error, non-200 status, success=false, error body) to ErrCurrencyUnavailable.
func (s *CurrencyService) fetch(ctx context.Context, rawURL string) (*upstreamPayload, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("currency service: build request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.log.Error("upstream request failed", zap.String("url", rawURL), zap.Error(err))
		return nil, ErrCurrencyUnavailable
	}
	defer resp.Body.Close()

	var payload upstreamPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.Error("upstream response undecodable", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, ErrCurrencyUnavailable
	}

	upstreamErr := len(payload.Error) > 0 && string(payload.Error) != "null"
	if resp.StatusCode != http.StatusOK ||
		(payload.Success != nil && !*payload.Success) ||
		upstreamErr {
		s.log.Error("upstream reported failure",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("error", payload.Error),
		)
		return nil, ErrCurrencyUnavailable
	}

	return &payload, nil
}
