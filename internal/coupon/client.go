// Package coupon talks to the remote coupon validation service.
package coupon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/resell/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultApplyPath = "/api/v1/coupons/apply"
	defaultTimeout   = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Config configures a Client. BaseURL is required.
type Config struct {
	BaseURL   string
	ApplyPath string
	Timeout   time.Duration

	// HTTPClient overrides the default client. Its Timeout is left alone.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements domain.CouponValidator over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

var _ domain.CouponValidator = (*Client)(nil)

type applyRequest struct {
	CouponCode  string      `json:"coupon_code"`
	OrderAmount json.Number `json:"order_amount"`
	ProductIDs  []string    `json:"product_ids"`
}

type applyResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *applyData      `json:"data"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

type applyData struct {
	CouponCode     string          `json:"coupon_code"`
	CouponTitle    string          `json:"coupon_title"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// NewClient creates a coupon client for cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("coupon: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("coupon: invalid base URL %q", cfg.BaseURL)
	}

	path := cfg.ApplyPath
	if path == "" {
		path = defaultApplyPath
	}
	endpoint := base.JoinPath(path)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: endpoint.String(),
		http:     httpClient,
		logger:   logger.With(slog.String("component", "coupon_client")),
	}, nil
}

// ValidateCoupon asks the service to price req.Code against the order.
// Every failure, whatever the cause, is returned as a coupon-rejected error;
// the cause is logged and kept for errors.Unwrap.
func (c *Client) ValidateCoupon(ctx context.Context, req domain.CouponRequest) (*domain.CouponApplication, error) {
	const op = "coupon.validate"

	app, err := c.validate(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "coupon validation failed",
			slog.String("code", req.Code),
			slog.String("order_amount", req.OrderAmount.String()),
			slog.Any("error", err),
		)
		return nil, domain.CouponRejected(op, err)
	}

	c.logger.DebugContext(ctx, "coupon validated",
		slog.String("code", app.Code),
		slog.String("discount", app.DiscountAmount.String()),
		slog.String("final_amount", app.FinalAmount.String()),
	)
	return app, nil
}

func (c *Client) validate(ctx context.Context, req domain.CouponRequest) (*domain.CouponApplication, error) {
	productIDs := req.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}

	payload := applyRequest{
		CouponCode:  req.Code,
		OrderAmount: json.Number(req.OrderAmount.String()),
		ProductIDs:  productIDs,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coupon payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(req.AuthToken); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("coupon API error (status %d): %s", resp.StatusCode, truncate(body, 256))
	}

	var result applyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("coupon refused: %s", result.Message)
	}
	if result.Data == nil {
		return nil, errors.New("coupon response has no data")
	}

	discountType := domain.DiscountType(result.Data.DiscountType)
	if !discountType.Valid() {
		return nil, fmt.Errorf("unknown discount type %q", result.Data.DiscountType)
	}

	code := result.Data.CouponCode
	if code == "" {
		code = req.Code
	}

	return &domain.CouponApplication{
		Code:           code,
		Title:          result.Data.CouponTitle,
		DiscountType:   discountType,
		DiscountValue:  result.Data.DiscountValue,
		DiscountAmount: result.Data.DiscountAmount,
		FinalAmount:    result.Data.FinalAmount,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
