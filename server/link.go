package server

import (
	"net/http"

	"github.com/driftlock/ghostgate/internal/fingerprint"
	"github.com/driftlock/ghostgate/internal/logger"
	"github.com/driftlock/ghostgate/internal/session"
	"github.com/labstack/echo/v4"
)

// handleRequestLink mints a pending link request for the signed-in
// account.
func (s *Server) handleRequestLink(c echo.Context) error {
	ctx := c.Request().Context()
	hash := fingerprint.FromContext(c)
	linkID, d, err := s.sessions.RequestLink(ctx, hash)
	if err != nil {
		logger.Error("nonce-to-link failed", logger.F("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	switch d {
	case session.Granted:
		logger.Debug("link request created", logger.F("link_id", linkID))
	case session.Unauthorized:
		s.clearNonceCookie(c)
	}
	return c.NoContent(d.HTTPStatus())
}

// handleConsumeLink gates link consumption and clears the account's
// pending link reference.
func (s *Server) handleConsumeLink(c echo.Context) error {
	ctx := c.Request().Context()
	hash := fingerprint.FromContext(c)
	d, err := s.sessions.ConsumeLink(ctx, hash, s.presentedToken(c), c.Param("linkId"))
	if err != nil {
		logger.Error("link failed", logger.F("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	if d == session.Unauthorized {
		s.clearNonceCookie(c)
	}
	return c.NoContent(d.HTTPStatus())
}
