package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeInsufficientStock, status: http.StatusBadRequest, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeInvalidState, status: http.StatusBadRequest, publicMsg: "invalid order state", detailsOK: true},
		{code: CodeRateLimited, status: http.StatusTooManyRequests, publicMsg: "too many requests", retryable: true},
		{code: CodeGateway, status: http.StatusBadRequest, publicMsg: "payment gateway rejected the request", detailsOK: true},
		{code: CodeGatewayUnavailable, status: http.StatusInternalServerError, publicMsg: "payment gateway unavailable", retryable: true},
		{code: CodeConfiguration, status: http.StatusInternalServerError, publicMsg: "service misconfigured"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.publicMsg, meta.PublicMessage)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing foo", base.Message())
	require.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "foo"})
	require.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeGatewayUnavailable, cause, "snap request failed")
	require.True(t, stdErrors.Is(wrapped, cause))
	require.Equal(t, CodeGatewayUnavailable, wrapped.Code())
	require.Contains(t, wrapped.Error(), "boom")
}

func TestDomainConstructorsCarryDetails(t *testing.T) {
	stock := InsufficientStock("v-1", 5, 2)
	require.Equal(t, CodeInsufficientStock, stock.Code())
	require.Equal(t, InsufficientStockDetails{VariantID: "v-1", Requested: 5, Available: 2}, stock.Details())

	transition := InvalidTransition("shipped", "cancelled")
	require.Equal(t, CodeInvalidState, transition.Code())
	require.Equal(t, StateTransitionDetails{From: "shipped", To: "cancelled"}, transition.Details())
}

func TestAsAndIsCodeFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("order"))
	got := As(err)
	require.NotNil(t, got)
	require.Equal(t, CodeNotFound, got.Code())
	require.True(t, IsCode(err, CodeNotFound))
	require.False(t, IsCode(err, CodeValidation))
	require.Nil(t, As(nil))
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "payment_transactions_transaction_id_key", TableName: "payment_transactions"}
	err := Wrap(CodeConflict, pgErr, "insert payment transaction")

	dump := Dump(err)
	require.Equal(t, CodeConflict, dump.Code)
	require.Equal(t, http.StatusConflict, dump.HTTPStatus)
	require.NotNil(t, dump.Postgres)
	require.Equal(t, "23505", dump.Postgres.Code)
	require.Equal(t, "payment_transactions_transaction_id_key", dump.Postgres.Constraint)
	require.Len(t, dump.Chain, 2)
	require.Equal(t, "payment_transactions", dump.Fields()["pg_table"])
}

func TestDumpCarriesHiddenDetails(t *testing.T) {
	err := InsufficientStock("variant-1", 3, 1)

	dump := Dump(err)
	require.Nil(t, dump.Postgres)
	require.Equal(t, InsufficientStockDetails{VariantID: "variant-1", Requested: 3, Available: 1}, dump.Details)

	fields := dump.Fields()
	require.NotContains(t, fields, "pg_code")
	require.Equal(t, CodeInsufficientStock, fields["error_code"])
}
