package midtrans

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, serverKey string, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.MidtransConfig{ServerKey: serverKey, Env: "sandbox"}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func sampleRequest() SnapRequest {
	return SnapRequest{
		TransactionDetails: TransactionDetails{OrderID: "order-1-deadbeef", GrossAmount: 270},
		ItemDetails: []ItemDetail{
			NewItem("ITEM-1", "Kopi - 250g", 100, 1),
			NewItem("SHIPPING-order-1", "Shipping Cost (jne)", 20, 1),
		},
	}
}

func TestNewClientSelectsBaseURLByEnvironment(t *testing.T) {
	sandbox, err := NewClient(config.MidtransConfig{Env: ""})
	require.NoError(t, err)
	require.Equal(t, SandboxBaseURL, sandbox.baseURL)
	require.Equal(t, config.MidtransEnvSandbox, sandbox.Environment())

	prod, err := NewClient(config.MidtransConfig{Env: "PRODUCTION"})
	require.NoError(t, err)
	require.Equal(t, ProductionBaseURL, prod.baseURL)

	_, err = NewClient(config.MidtransConfig{Env: "staging"})
	require.Error(t, err)

	custom, err := NewClient(config.MidtransConfig{Env: "sandbox", BaseURL: "http://snap.test/"})
	require.NoError(t, err)
	require.Equal(t, "http://snap.test", custom.baseURL)
}

func TestCreateTransactionSuccess(t *testing.T) {
	var captured *http.Request
	var payload map[string]any
	client := newTestClient(t, "SB-server-key", func(req *http.Request) (*http.Response, error) {
		captured = req
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		return jsonResponse(http.StatusCreated, `{"token":"tok-123","redirect_url":"https://app.sandbox.midtrans.com/snap/v4/redirection/tok-123"}`), nil
	})

	resp, err := client.CreateTransaction(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "tok-123", resp.Token)
	require.Contains(t, resp.RedirectURL, "tok-123")
	require.JSONEq(t, `{"token":"tok-123","redirect_url":"https://app.sandbox.midtrans.com/snap/v4/redirection/tok-123"}`, string(resp.Raw))

	require.Equal(t, SandboxBaseURL+"/snap/v1/transactions", captured.URL.String())
	require.Equal(t, http.MethodPost, captured.Method)
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("SB-server-key:"))
	require.Equal(t, wantAuth, captured.Header.Get("Authorization"))

	details := payload["transaction_details"].(map[string]any)
	require.Equal(t, "order-1-deadbeef", details["order_id"])
	require.EqualValues(t, 270, details["gross_amount"])
	require.Len(t, payload["item_details"], 2)
}

func TestCreateTransactionBusinessFailure(t *testing.T) {
	client := newTestClient(t, "key", func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"status_message":"transaction_details.gross_amount is not equal to the sum of item_details","error_messages":["gross_amount mismatch"]}`), nil
	})

	_, err := client.CreateTransaction(context.Background(), sampleRequest())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeGateway, typed.Code())
	require.Contains(t, typed.Message(), "gross_amount")
	require.False(t, IsUnavailable(err))
}

func TestCreateTransactionMissingToken(t *testing.T) {
	client := newTestClient(t, "key", func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusCreated, `{"redirect_url":"x"}`), nil
	})

	_, err := client.CreateTransaction(context.Background(), sampleRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	require.Equal(t, "Midtrans API error", pkgerrors.As(err).Message())
}

func TestCreateTransactionTransportFailure(t *testing.T) {
	client := newTestClient(t, "key", func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	})

	_, err := client.CreateTransaction(context.Background(), sampleRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable))
	require.True(t, IsUnavailable(err))
}

func TestCreateTransactionWithoutServerKey(t *testing.T) {
	called := false
	client := newTestClient(t, "  ", func(*http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	})

	_, err := client.CreateTransaction(context.Background(), sampleRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))
	require.False(t, called)
	require.False(t, client.Configured())
}

func TestNewItemClipsLongNames(t *testing.T) {
	item := NewItem("ITEM-1", strings.Repeat("é", 80), 1000, 2)
	require.Len(t, []rune(item.Name), 50)
	require.EqualValues(t, 1000, item.Price)
	require.Equal(t, 2, item.Quantity)
}
