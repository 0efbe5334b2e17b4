package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/resell/internal/domain"
)

type envelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ECOUPON, http.StatusUnprocessableEntity},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid quantity",
			err:            domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "coupon rejected",
			err:            domain.CouponRejected("coupon.validate", errors.New("expired")),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   domain.ECOUPON,
		},
		{
			name:           "stale coupon",
			err:            domain.ErrCouponStale,
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "plain error is internal",
			err:            errors.New("disk on fire"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedCode, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestErrorResponse_CouponRejectionIsUniform(t *testing.T) {
	for _, cause := range []string{"expired", "minimum not met", "unknown code"} {
		rec := httptest.NewRecorder()
		ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/cart/coupon", nil), domain.CouponRejected("coupon.validate", errors.New(cause)))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, domain.CouponRejectedMessage, env.Error.Message)
		assert.NotContains(t, env.Error.Message, cause)
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()

	err := domain.Internal(errors.New("dial tcp 192.168.1.100:5432"), "cart.add", "failed to persist cart")
	ErrorResponse(rec, req, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred. Please try again later.", decodeEnvelope(t, rec).Error.Message)
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("cart.add", "id", "is required")
	err = domain.AddFieldError(err, "price", "must not be negative")
	ErrorResponse(rec, req, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.EINVALID, env.Error.Code)
	assert.Equal(t, map[string]string{"id": "is required", "price": "must not be negative"}, env.Error.Fields)
}

func TestConvenienceResponses(t *testing.T) {
	t.Run("NotFoundResponse", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NotFoundResponse(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MethodNotAllowedResponse", func(t *testing.T) {
		rec := httptest.NewRecorder()
		MethodNotAllowedResponse(rec, httptest.NewRequest(http.MethodPut, "/cart/items", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Error.Message, "PUT")
	})

	t.Run("InternalErrorResponse", func(t *testing.T) {
		rec := httptest.NewRecorder()
		InternalErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/cart", nil), nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
