// Package cookie issues and reads the cart session cookie.
//
// The cookie holds nothing but an opaque session UUID. Cart contents live
// server-side under that id.
package cookie

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/resell/internal/service"
)

// CartCookieName carries the anonymous cart session id.
const CartCookieName = "resell_cart"

// DefaultMaxAge keeps an abandoned cart reachable for a month.
const DefaultMaxAge = 30 * 24 * time.Hour

// Config holds cookie configuration for the cart session.
type Config struct {
	// Domain scopes the cookie. Empty means host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool

	MaxAge time.Duration
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{
		Domain: domain,
		Secure: secure,
		MaxAge: DefaultMaxAge,
	}
}

// SetSession writes the session cookie. It is HttpOnly and SameSite=Lax.
func (c *Config) SetSession(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession expires the session cookie. Domain must match the original.
func (c *Config) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session returns the request's cart session id. A missing or malformed
// cookie yields a freshly minted id, which is written back on w; so does a
// cookie whose id was not in canonical form.
func (c *Config) Session(w http.ResponseWriter, r *http.Request, logger *slog.Logger) string {
	raw := Get(r, CartCookieName)
	if raw != "" {
		id, err := service.NormalizeSessionID(raw)
		if err == nil {
			if id != raw {
				c.SetSession(w, id)
			}
			return id
		}
		logger.Debug("discarding malformed cart cookie", slog.Int("length", len(raw)))
	}

	id := service.GenerateSessionID()
	c.SetSession(w, id)
	return id
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
