// Package fingerprint resolves an inbound request to a stable browser
// fingerprint: a digest of the user-agent and accept headers combined
// with a persistent client-side identifier carried in a cookie. The
// cookie is minted on first contact, so the fingerprint is durable as
// long as the client keeps its cookie and header characteristics.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DefaultClientCookie is the cookie holding the persistent client id.
const DefaultClientCookie = "cid"

const (
	hashContextKey     = "fingerprint.hash"
	clientIDContextKey = "fingerprint.cid"
)

// Resolver computes fingerprints and manages the client-id cookie.
type Resolver struct {
	// CookieName overrides DefaultClientCookie when non-empty.
	CookieName string
}

func (r *Resolver) cookieName() string {
	if r.CookieName != "" {
		return r.CookieName
	}
	return DefaultClientCookie
}

// Middleware resolves the fingerprint for every request, minting the
// client-id cookie when absent, and stores both values on the context.
func (r *Resolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cid := ""
			if cookie, err := c.Cookie(r.cookieName()); err == nil {
				cid = cookie.Value
			}
			if cid == "" {
				cid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     r.cookieName(),
					Value:    cid,
					Path:     "/",
					HttpOnly: true,
				})
			}

			req := c.Request()
			hash := Hash(
				req.UserAgent(),
				req.Header.Get("Accept"),
				req.Header.Get("Accept-Encoding"),
				req.Header.Get("Accept-Language"),
				cid,
			)
			c.Set(hashContextKey, hash)
			c.Set(clientIDContextKey, cid)
			return next(c)
		}
	}
}

// Hash digests the fingerprint components into a hex string.
func Hash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// FromContext returns the fingerprint hash resolved by Middleware, or
// "" when resolution did not run.
func FromContext(c echo.Context) string {
	if v, ok := c.Get(hashContextKey).(string); ok {
		return v
	}
	return ""
}

// ClientIDFromContext returns the client id resolved by Middleware.
func ClientIDFromContext(c echo.Context) string {
	if v, ok := c.Get(clientIDContextKey).(string); ok {
		return v
	}
	return ""
}
