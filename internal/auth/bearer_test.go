package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer abc.def", want: "abc.def"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "extra spaces", header: "Bearer   abc  ", want: "abc"},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "no scheme", header: "abc", want: ""},
		{name: "empty", header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/cart/coupon", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "customer-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("any-secret"))
	require.NoError(t, err)

	assert.Equal(t, "customer-42", Subject(signed))
}

func TestSubject_ExpiredTokenStillReadable(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "customer-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	assert.Equal(t, "customer-7", Subject(signed), "expiry is the coupon service's concern")
}

func TestSubject_Opaque(t *testing.T) {
	assert.Equal(t, "", Subject(""))
	assert.Equal(t, "", Subject("opaque-session-token"))
	assert.Equal(t, "", Subject("a.b.c"))
}
