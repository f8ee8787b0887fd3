// Package rajaongkir wraps the Komerce RajaOngkir domestic cost API.
package rajaongkir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

const (
	defaultBaseURL            = "https://rajaongkir.komerce.id/api/v1"
	domesticCostPath          = "/calculate/domestic-cost"
	responseReadLimit   int64 = 256 * 1024
	errorBodyReadLimit  int64 = 1024
	defaultTimeout            = 10 * time.Second
)

// Client calls the carrier-rate API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds the client. An empty API key is reported by DomesticCost.
func NewClient(cfg config.ShippingConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		WithBaseURL(cfg.BaseURL)(client)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// CostRequest asks for rates between two destination ids. Courier may hold
// several codes joined with ':' (e.g. "jne:sicepat").
type CostRequest struct {
	Origin      string
	Destination string
	WeightGrams int
	Courier     string
}

// Rate is one courier service quote.
type Rate struct {
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Service     string          `json:"service"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	ETD         string          `json:"etd"`
}

// DomesticCost posts the form encoded cost calculation.
func (c *Client) DomesticCost(ctx context.Context, req CostRequest) ([]Rate, error) {
	if c == nil || c.apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "rajaongkir api key not configured")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("origin", strings.TrimSpace(req.Origin))
	form.Set("destination", strings.TrimSpace(req.Destination))
	form.Set("weight", strconv.Itoa(req.WeightGrams))
	form.Set("courier", strings.ToLower(strings.TrimSpace(req.Courier)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+domesticCostPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build domestic cost request")
	}
	httpReq.Header.Set("key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "rajaongkir request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeGateway, carrierMessage(msg, resp.StatusCode)).
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	var apiResp struct {
		Meta struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Status  string `json:"status"`
		} `json:"meta"`
		Data []Rate `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseReadLimit)).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode rajaongkir response")
	}

	rates := make([]Rate, 0, len(apiResp.Data))
	for _, rate := range apiResp.Data {
		rate.Code = strings.ToLower(strings.TrimSpace(rate.Code))
		rate.Service = strings.TrimSpace(rate.Service)
		rates = append(rates, rate)
	}
	return rates, nil
}

func (r CostRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Origin) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "origin is required")
	case strings.TrimSpace(r.Destination) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	case r.WeightGrams <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	case strings.TrimSpace(r.Courier) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "courier is required")
	}
	return nil
}

// carrierMessage pulls meta.message out of an error body when present.
func carrierMessage(body []byte, status int) string {
	var parsed struct {
		Meta struct {
			Message string `json:"message"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Meta.Message) != "" {
		return parsed.Meta.Message
	}
	return fmt.Sprintf("rajaongkir returned status %d", status)
}
