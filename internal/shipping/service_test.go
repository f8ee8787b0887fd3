package shipping

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/rajaongkir"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func rateBody(regCost int) string {
	return `{"meta":{"code":200,"status":"success"},"data":[` +
		`{"name":"JNE","code":"jne","service":"REG","description":"Layanan Reguler","cost":` + strconv.Itoa(regCost) + `,"etd":"2 day"},` +
		`{"name":"JNE","code":"jne","service":"YES","description":"Yakin Esok Sampai","cost":28000,"etd":"1 day"}]}`
}

type fixture struct {
	svc   *Service
	repo  Repository
	body  string
	fail  error
	calls int
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	f := &fixture{body: rateBody(16000)}
	client := rajaongkir.NewClient(config.ShippingConfig{APIKey: apiKey},
		rajaongkir.WithBaseURL("http://rates.test/api/v1"),
		rajaongkir.WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			f.calls++
			if f.fail != nil {
				return nil, f.fail
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(f.body)),
				Header:     http.Header{},
			}, nil
		})}),
	)
	f.repo = NewRepository(dbtest.Open(t).DB())
	logg := logger.New(logger.Options{ServiceName: "shipping-test", Output: &bytes.Buffer{}})
	svc, err := NewService(client, f.repo, logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func quote() QuoteRequest {
	return QuoteRequest{Origin: "501", Destination: "114", WeightGrams: 1700, Courier: "JNE"}
}

func TestQuoteStoresRates(t *testing.T) {
	f := newFixture(t, "key")
	ctx := context.Background()

	rates, err := f.svc.Quote(ctx, quote())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.Equal(t, "REG", rates[0].Service)

	stored, err := f.repo.FindRates(ctx, "501", "114", 1700, []string{"jne"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.True(t, stored[0].Cost.Equal(decimal.NewFromInt(16000)))
	require.Equal(t, "2 day", stored[0].ETD)
}

func TestQuoteUpdatesExistingRoute(t *testing.T) {
	f := newFixture(t, "key")
	ctx := context.Background()

	_, err := f.svc.Quote(ctx, quote())
	require.NoError(t, err)

	f.body = rateBody(17500)
	_, err = f.svc.Quote(ctx, quote())
	require.NoError(t, err)

	stored, err := f.repo.FindRates(ctx, "501", "114", 1700, nil)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	var reg models.ShippingRate
	for _, row := range stored {
		if row.Service == "REG" {
			reg = row
		}
	}
	require.True(t, reg.Cost.Equal(decimal.NewFromInt(17500)))
}

func TestQuoteFallsBackToCacheWhenCarrierDown(t *testing.T) {
	f := newFixture(t, "key")
	ctx := context.Background()

	_, err := f.svc.Quote(ctx, quote())
	require.NoError(t, err)

	f.fail = errors.New("dial tcp: connection refused")
	rates, err := f.svc.Quote(ctx, quote())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.Equal(t, "jne", rates[0].Code)

	other := quote()
	other.WeightGrams = 900
	_, err = f.svc.Quote(ctx, other)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable))
}

func TestQuoteRequiresAPIKey(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.svc.Quote(context.Background(), quote())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))
	require.Zero(t, f.calls)
}

func TestQuoteValidatesParcel(t *testing.T) {
	f := newFixture(t, "key")
	req := quote()
	req.WeightGrams = 0

	_, err := f.svc.Quote(context.Background(), req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Zero(t, f.calls)
}

func TestSplitCouriers(t *testing.T) {
	require.Equal(t, []string{"jne", "pos"}, splitCouriers("jne: pos:"))
	require.Nil(t, splitCouriers(""))
}
