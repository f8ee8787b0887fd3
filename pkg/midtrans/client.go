// Package midtrans is a thin client for the Midtrans Snap API.
package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

const (
	SandboxBaseURL    = "https://app.sandbox.midtrans.com"
	ProductionBaseURL = "https://app.midtrans.com"

	snapTransactionsPath       = "/snap/v1/transactions"
	responseReadLimit    int64 = 64 * 1024
	defaultTimeout             = 15 * time.Second
)

var errInvalidEnv = fmt.Errorf("midtrans environment must be %q or %q", config.MidtransEnvSandbox, config.MidtransEnvProduction)

var baseURLs = map[string]string{
	config.MidtransEnvSandbox:    SandboxBaseURL,
	config.MidtransEnvProduction: ProductionBaseURL,
}

// Client posts Snap transactions and verifies notification signatures.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	serverKey   string
	environment string
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

// WithBaseURL overrides the environment base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds a client for the configured environment. A missing server
// key surfaces later from CreateTransaction as a configuration error.
func NewClient(cfg config.MidtransConfig, opts ...Option) (*Client, error) {
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidEnv
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		serverKey:   strings.TrimSpace(cfg.ServerKey),
		environment: env,
	}
	if cfg.BaseURL != "" {
		WithBaseURL(cfg.BaseURL)(client)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Configured reports whether a server key is present.
func (c *Client) Configured() bool {
	return c != nil && c.serverKey != ""
}

// CreateTransaction opens a Snap transaction. Non-201 answers and answers
// without a token become CodeGateway errors carrying status_message; transport
// failures become CodeGatewayUnavailable.
func (c *Client) CreateTransaction(ctx context.Context, req SnapRequest) (*SnapResponse, error) {
	if !c.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "midtrans server key not configured")
	}
	if strings.TrimSpace(req.TransactionDetails.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction order_id is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal snap request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+snapTransactionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build snap request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+basicAuth(c.serverKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "midtrans request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "read midtrans response")
	}

	var parsed struct {
		Token         string   `json:"token"`
		RedirectURL   string   `json:"redirect_url"`
		StatusMessage string   `json:"status_message"`
		ErrorMessages []string `json:"error_messages"`
	}
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusCreated || decodeErr != nil || parsed.Token == "" {
		return nil, gatewayError(resp.StatusCode, parsed.StatusMessage, parsed.ErrorMessages)
	}

	return &SnapResponse{
		Token:       parsed.Token,
		RedirectURL: parsed.RedirectURL,
		Raw:         json.RawMessage(body),
	}, nil
}

func gatewayError(statusCode int, statusMessage string, messages []string) *pkgerrors.Error {
	msg := strings.TrimSpace(statusMessage)
	if msg == "" && len(messages) > 0 {
		msg = strings.Join(messages, "; ")
	}
	if msg == "" {
		msg = "Midtrans API error"
	}
	details := map[string]any{"status_code": statusCode}
	if len(messages) > 0 {
		details["error_messages"] = messages
	}
	return pkgerrors.New(pkgerrors.CodeGateway, msg).WithDetails(details)
}

func basicAuth(serverKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(serverKey + ":"))
}

// IsUnavailable reports whether err is a transport level gateway failure.
func IsUnavailable(err error) bool {
	var typed *pkgerrors.Error
	return errors.As(err, &typed) && typed.Code() == pkgerrors.CodeGatewayUnavailable
}
