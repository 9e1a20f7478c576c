// Package server exposes the session service over HTTP. Every auth
// endpoint answers with a bare status code; state travels only through
// cookies.
package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/driftlock/ghostgate/internal/config"
	"github.com/driftlock/ghostgate/internal/fingerprint"
	"github.com/driftlock/ghostgate/internal/logger"
	"github.com/driftlock/ghostgate/internal/session"
	"github.com/driftlock/ghostgate/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the fingerprint auth server
type Server struct {
	echo     *echo.Echo
	sessions *session.Service

	sessionCookie string
	closer        io.Closer
}

// New creates a new server from the given configuration, opening the
// selected store backend.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		accounts store.Accounts
		links    store.Links
		closer   io.Closer
	)
	switch cfg.Store {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		accounts, links, closer = db.Accounts(), db.Links(), db
	case "postgres":
		db, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		accounts, links, closer = db.Accounts(), db.Links(), db
	default:
		accounts, links = store.NewMemoryAccounts(), store.NewMemoryLinks()
	}

	sessions := session.New(accounts, links, session.Options{
		NonceTTL: cfg.NonceTTL.Std(),
		Hasher:   session.BcryptHasher{Cost: cfg.BcryptCost},
	})

	s := &Server{
		sessions:      sessions,
		sessionCookie: cfg.SessionCookie,
		closer:        closer,
	}
	s.setupEcho(&fingerprint.Resolver{CookieName: cfg.ClientCookie})
	return s, nil
}

// NewWithService wires a server around an existing session service and
// fingerprint resolver. Used by tests and embedders.
func NewWithService(sessions *session.Service, resolver *fingerprint.Resolver, sessionCookie string) *Server {
	s := &Server{
		sessions:      sessions,
		sessionCookie: sessionCookie,
	}
	s.setupEcho(resolver)
	return s
}

func (s *Server) setupEcho(resolver *fingerprint.Resolver) {
	e := echo.New()
	e.HideBanner = true

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			logger.Info("http request",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", c.Response().Status),
				logger.F("duration", time.Since(start).String()))
			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(resolver.Middleware())

	api := e.Group("/api")
	api.GET("/check-access", s.handleCheckAccess)
	api.POST("/sign-in", s.handleSignIn)
	api.POST("/sign-out", s.handleSignOut)
	api.GET("/link/:linkId", s.handleConsumeLink)
	api.GET("/nonce-to-link", s.handleRequestLink)

	// Any other route gets the generic fallback response.
	e.RouteNotFound("/*", s.handleFallback)

	s.echo = e
}

// Close closes the store backend, if it holds resources
func (s *Server) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleFallback(c echo.Context) error {
	return c.String(http.StatusOK, "Server app")
}
