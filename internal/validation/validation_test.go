package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/internal/errs"
)

type evRequest struct {
	ChargePortID int      `query:"chargePortId" json:"-" validate:"gte=0"`
	MaxCurrentA  *float64 `json:"maxCurrentA" validate:"omitempty,gte=0,lte=80"`
	Phases       *int     `json:"phases" validate:"omitempty,gte=1,lte=3"`
	Energy       *energy  `json:"energy"`
}

type energy struct {
	Soc *int `json:"soc" validate:"omitempty,gte=0,lte=100"`
}

func (r *evRequest) Validate() error { return Struct(r) }

type customRequest struct{}

func (customRequest) Validate() error {
	return CustomValidationErrors{{Field: "window", Message: "overlaps another window"}}
}

func newContext(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func asHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected HTTPError, got %v", err)
	return httpErr
}

func TestBindAndValidatePostBindsQuery(t *testing.T) {
	c := newContext(http.MethodPost, "/api/sim/config/ev?chargePortId=2", `{"maxCurrentA":16,"phases":3}`)

	var req evRequest
	require.NoError(t, BindAndValidate(c, &req))
	assert.Equal(t, 2, req.ChargePortID)
	require.NotNil(t, req.MaxCurrentA)
	assert.Equal(t, 16.0, *req.MaxCurrentA)
	assert.Equal(t, 3, *req.Phases)
}

func TestBindAndValidateEmptyBody(t *testing.T) {
	c := newContext(http.MethodPost, "/api/sim/connector/actions/plug", "")
	var req evRequest
	require.NoError(t, BindAndValidate(c, &req))
	assert.Zero(t, req.ChargePortID)
}

func TestBindAndValidateFieldErrors(t *testing.T) {
	c := newContext(http.MethodPost, "/x", `{"phases":4,"energy":{"soc":120}}`)

	httpErr := asHTTPError(t, BindAndValidate(c, &evRequest{}))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.True(t, httpErr.Override)

	fields := map[string]string{}
	for _, fe := range httpErr.Errors {
		fields[fe.Field] = fe.Error
	}
	assert.Equal(t, "must not exceed 3", fields["phases"])
	assert.Equal(t, "must not exceed 100", fields["energy.soc"])
}

func TestBindAndValidateMalformedJSON(t *testing.T) {
	c := newContext(http.MethodPost, "/x", `{"phases":`)
	httpErr := asHTTPError(t, BindAndValidate(c, &evRequest{}))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.False(t, httpErr.Override)
	assert.NotEmpty(t, httpErr.Message)
}

func TestBindAndValidateBadQuery(t *testing.T) {
	c := newContext(http.MethodGet, "/x?chargePortId=abc", "")
	httpErr := asHTTPError(t, BindAndValidate(c, &evRequest{}))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
}

func TestCustomValidationErrors(t *testing.T) {
	c := newContext(http.MethodGet, "/x", "")
	httpErr := asHTTPError(t, BindAndValidate(c, &customRequest{}))
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, errs.FieldError{Field: "window", Error: "overlaps another window"}, httpErr.Errors[0])
}

func TestEmptyRequest(t *testing.T) {
	c := newContext(http.MethodGet, "/x", "")
	assert.NoError(t, BindAndValidate(c, &EmptyRequest{}))
}
