package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking.
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string

	// SampleRate is the fraction of errors sent. Zero means all of them.
	SampleRate float64

	// TracesSampleRate is the fraction of transactions traced. Zero disables tracing.
	TracesSampleRate float64

	Debug bool
}

var enabled atomic.Bool

// InitSentry initializes the global Sentry client and returns a flush func for
// shutdown. A disabled config or a missing DSN leaves every helper in this file
// a no-op.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	enabled.Store(false)
	noop := func() {}

	if !cfg.Enabled {
		logger.Info("Sentry disabled (SENTRY_ENABLED=false)")
		return noop, nil
	}
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured, disabling error tracking")
		return noop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
		"traces_sample_rate", cfg.TracesSampleRate,
	)

	return func() { sentry.Flush(flushTimeout) }, nil
}

// scrubEvent drops the shopper's credentials and cart cookie before an event
// leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
		event.Request.Cookies = ""
	}
	return event
}

// IsEnabled reports whether events are being sent.
func IsEnabled() bool {
	return enabled.Load()
}

func setExtras(scope *sentry.Scope, extras map[string]interface{}) {
	for key, value := range extras {
		scope.SetExtra(key, value)
	}
}

// hubFrom returns the request hub when there is one.
func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError reports err on the global hub. Use CaptureErrorFromContext
// inside a request.
func CaptureError(err error, extras ...map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if len(extras) > 0 {
			setExtras(scope, extras[0])
		}
		sentry.CaptureException(err)
	})
}

// CaptureErrorFromContext reports err on the request hub, so the cart session
// tag set by SentryContextMiddleware comes along.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		setExtras(scope, extras)
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a non-error event.
func CaptureMessage(message string, level sentry.Level, extras ...map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(extras) > 0 {
			setExtras(scope, extras[0])
		}
		sentry.CaptureMessage(message)
	})
}

// AddBreadcrumb records a step on the hub in ctx.
func AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	}, nil)
}

// StartSpan starts a child span of whatever transaction ctx carries.
func StartSpan(ctx context.Context, operation, description string) (context.Context, func()) {
	if !IsEnabled() {
		return ctx, func() {}
	}
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span.Context(), span.Finish
}

// RecoverWithSentry reports a panic and then re-panics.
// Use: defer telemetry.RecoverWithSentry()
func RecoverWithSentry() {
	if r := recover(); r != nil {
		if IsEnabled() {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(flushTimeout)
		}
		panic(r)
	}
}

// SentryMiddleware gives each request its own hub carrying the request.
// Panics are left to the recover middleware, which reports through this hub.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
		})
	}
}

// SessionExtractor returns the cart session for a request context, or "".
type SessionExtractor func(ctx context.Context) string

// SentryContextMiddleware tags the request hub with the cart session.
// It must run after the session middleware.
func SentryContextMiddleware(sessionExtractor SessionExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsEnabled() && sessionExtractor != nil {
				if id := sessionExtractor(r.Context()); id != "" {
					hubFrom(r.Context()).Scope().SetTag("cart_session", id)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPTransport traces outbound calls, such as coupon validation, as
// http.client spans.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if !IsEnabled() {
		return base.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = fmt.Sprintf("%s %s%s", req.Method, req.URL.Host, req.URL.Path)
	defer span.Finish()

	resp, err := base.RoundTrip(req)
	switch {
	case err != nil:
		span.Status = sentry.SpanStatusInternalError
	case resp.StatusCode >= 500:
		span.Status = sentry.SpanStatusInternalError
		span.SetData("http.status_code", resp.StatusCode)
	default:
		span.SetData("http.status_code", resp.StatusCode)
	}
	return resp, err
}
