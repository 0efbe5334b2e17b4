package internal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("CART_BACKEND", "")
	t.Setenv("TAX_RATE", "")
	t.Setenv("COUPON_TIMEOUT", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.True(t, cfg.Tax.Rate.IsZero(), "tax rate should default to zero")
	assert.Equal(t, 10*time.Second, cfg.Coupon.Timeout)
	assert.Equal(t, "/api/v1/coupons/apply", cfg.Coupon.ApplyPath)
}

func TestNewConfig_ParsesValues(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("CART_BACKEND", "memory")
	t.Setenv("TAX_RATE", "0.0825")
	t.Setenv("COUPON_TIMEOUT", "3s")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("PORT", "8081")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Tax.Rate.Equal(decimal.RequireFromString("0.0825")))
	assert.Equal(t, 3*time.Second, cfg.Coupon.Timeout)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, uint16(8081), cfg.Port)
}

func TestNewConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown cart backend",
			env:  map[string]string{"ENV": "dev", "CART_BACKEND": "cookie"},
		},
		{
			name: "negative tax rate",
			env:  map[string]string{"ENV": "dev", "CART_BACKEND": "memory", "TAX_RATE": "-0.1"},
		},
		{
			name: "tax rate above one",
			env:  map[string]string{"ENV": "dev", "CART_BACKEND": "memory", "TAX_RATE": "8"},
		},
		{
			name: "memory backend in production",
			env:  map[string]string{"ENV": "prod", "CART_BACKEND": "memory", "TAX_RATE": ""},
		},
		{
			name: "r2 in production without credentials",
			env: map[string]string{
				"ENV": "prod", "CART_BACKEND": "r2", "TAX_RATE": "",
				"R2_ACCOUNT_ID": "acct", "R2_ACCESS_KEY_ID": "", "R2_SECRET_ACCESS_KEY": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := NewConfig()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestNewConfig_InvalidLogLevelFallsBack(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("CART_BACKEND", "memory")
	t.Setenv("TAX_RATE", "")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewConfig_EventsAndLimits(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("CART_BACKEND", "memory")
	t.Setenv("TAX_RATE", "")
	t.Setenv("EVENTS_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("CART_IDLE_TTL", "5m")
	t.Setenv("COUPON_RATE_LIMIT_BURST", "3")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "resell.cart.events", cfg.Events.Topic)
	assert.Equal(t, []string{"https://shop.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.HTTP.TrustedProxies)
	assert.Equal(t, 5*time.Minute, cfg.Cart.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Cart.SweepInterval)
	assert.Equal(t, 3, cfg.HTTP.CouponRateLimitBurst)
	assert.Equal(t, 20, cfg.HTTP.RateLimitBurst)
}

func TestNewConfig_RejectsZeroRateLimit(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("CART_BACKEND", "memory")
	t.Setenv("TAX_RATE", "")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg, err := NewConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
