package server

import (
	"net/http"

	"github.com/driftlock/ghostgate/internal/fingerprint"
	"github.com/driftlock/ghostgate/internal/logger"
	"github.com/driftlock/ghostgate/internal/session"
	"github.com/labstack/echo/v4"
)

type signInRequest struct {
	Password string `json:"password"`
}

// presentedToken reads the nonce token cookie, "" when absent.
func (s *Server) presentedToken(c echo.Context) string {
	cookie, err := c.Cookie(s.sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setNonceCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     s.sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

func (s *Server) clearNonceCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// handleCheckAccess reports whether the caller's nonce grants access.
// Any failure for a known account tears the session down: a stale or
// mismatched token forcibly signs the account out.
func (s *Server) handleCheckAccess(c echo.Context) error {
	ctx := c.Request().Context()
	hash := fingerprint.FromContext(c)
	d, err := s.sessions.Status(ctx, hash, s.presentedToken(c))
	if err != nil {
		logger.Error("check-access failed", logger.F("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	if d == session.Unauthorized {
		if err := s.sessions.Teardown(ctx, hash); err != nil {
			logger.Error("teardown failed", logger.F("error", err))
			return c.NoContent(http.StatusInternalServerError)
		}
		s.clearNonceCookie(c)
	}
	return c.NoContent(d.HTTPStatus())
}

// handleSignIn establishes a session for the caller's fingerprint,
// creating the account on first contact.
func (s *Server) handleSignIn(c echo.Context) error {
	var req signInRequest
	// A malformed body is equivalent to a missing password.
	_ = c.Bind(&req)

	ctx := c.Request().Context()
	hash := fingerprint.FromContext(c)
	token, d, err := s.sessions.SignIn(ctx, hash, fingerprint.ClientIDFromContext(c), req.Password)
	if err != nil {
		logger.Error("sign-in failed", logger.F("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	switch d {
	case session.Granted:
		s.setNonceCookie(c, token)
	case session.Unauthorized:
		// Wrong password for an existing account: the service cleared
		// the stored nonce, drop the cookie as well.
		s.clearNonceCookie(c)
	}
	return c.NoContent(d.HTTPStatus())
}

// handleSignOut clears the caller's session when it is valid.
func (s *Server) handleSignOut(c echo.Context) error {
	ctx := c.Request().Context()
	hash := fingerprint.FromContext(c)
	d, err := s.sessions.SignOut(ctx, hash, s.presentedToken(c))
	if err != nil {
		logger.Error("sign-out failed", logger.F("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	if d == session.Granted {
		s.clearNonceCookie(c)
	}
	return c.NoContent(d.HTTPStatus())
}
