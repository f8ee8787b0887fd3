package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

type sampleBody struct {
	Name     string `json:"name" validate:"required,max=5"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"toolong","quantity":0}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	require.Equal(t, "must be at most 5", details["name"])
	require.Equal(t, "must be greater than 0", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","quantity":1,"extra":true}`))
	var body sampleBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 5, v)

	v, err = ParseQueryInt(req, "missing", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, v)

	_, err = ParseQueryInt(req, "bad", 20, 1, 100)
	require.Error(t, err)
	_, err = ParseQueryInt(req, "big", 20, 1, 100)
	require.Error(t, err)
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("orderId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := PathUUID(withParam(id.String()), "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = PathUUID(withParam("nope"), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = PathUUID(withParam(""), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
