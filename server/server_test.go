package server

import (
	"net/http"
	"testing"

	"github.com/driftlock/ghostgate/internal/fingerprint"
	"github.com/driftlock/ghostgate/internal/session"
	"github.com/driftlock/ghostgate/internal/store"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserAgent = "ghost-test/1.0"
	testClientID  = "client-1"
	nonceCookie   = "nonceToken"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := session.New(store.NewMemoryAccounts(), store.NewMemoryLinks(), session.Options{
		Hasher: session.BcryptHasher{Cost: bcrypt.MinCost},
	})
	return NewWithService(svc, &fingerprint.Resolver{}, nonceCookie).Router()
}

// request builds a request with a fixed browser identity so every call
// resolves to the same fingerprint.
func request(h http.Handler, method, path string) *apitest.Request {
	var r *apitest.Request
	switch method {
	case http.MethodPost:
		r = apitest.Handler(h).Post(path)
	default:
		r = apitest.Handler(h).Get(path)
	}
	return r.
		Header("User-Agent", testUserAgent).
		Header("Accept", "application/json").
		Cookie("cid", testClientID)
}

// signIn establishes a session and returns the issued nonce token.
func signIn(t *testing.T, h http.Handler, password string) string {
	t.Helper()
	result := request(h, http.MethodPost, "/api/sign-in").
		JSON(`{"password":"` + password + `"}`).
		Expect(t).
		Status(http.StatusOK).
		CookiePresent(nonceCookie).
		End()
	for _, c := range result.Response.Cookies() {
		if c.Name == nonceCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no nonce token cookie issued")
	return ""
}

// clearedCookie reports whether the response expired the named cookie.
func clearedCookie(result apitest.Result, name string) bool {
	for _, c := range result.Response.Cookies() {
		if c.Name == name && c.Value == "" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestFallbackRoute(t *testing.T) {
	h := newTestHandler(t)

	apitest.Handler(h).
		Get("/anything/else").
		Header("User-Agent", testUserAgent).
		Expect(t).
		Status(http.StatusOK).
		Body("Server app").
		CookiePresent("cid").
		End()
}

func TestCheckAccessUnauthenticated(t *testing.T) {
	h := newTestHandler(t)

	request(h, http.MethodGet, "/api/check-access").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestSignInValidation(t *testing.T) {
	h := newTestHandler(t)

	request(h, http.MethodPost, "/api/sign-in").
		JSON(`{"password":""}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	request(h, http.MethodPost, "/api/sign-in").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestSignInSignOutFlow(t *testing.T) {
	h := newTestHandler(t)
	token := signIn(t, h, "secret")

	request(h, http.MethodGet, "/api/check-access").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusOK).
		End()

	result := request(h, http.MethodPost, "/api/sign-out").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusOK).
		End()
	require.True(t, clearedCookie(result, nonceCookie))

	// The session is gone; the old token no longer grants access.
	request(h, http.MethodGet, "/api/check-access").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestSignOutWithoutSession(t *testing.T) {
	h := newTestHandler(t)

	request(h, http.MethodPost, "/api/sign-out").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestReSignInInvalidatesOldToken(t *testing.T) {
	h := newTestHandler(t)
	first := signIn(t, h, "secret")
	second := signIn(t, h, "secret")
	require.NotEqual(t, first, second)

	request(h, http.MethodGet, "/api/check-access").
		Cookie(nonceCookie, first).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	// The failed check tore the session down, so even the fresh token
	// is now rejected.
	request(h, http.MethodGet, "/api/check-access").
		Cookie(nonceCookie, second).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestSignInWrongPassword(t *testing.T) {
	h := newTestHandler(t)
	token := signIn(t, h, "secret")

	result := request(h, http.MethodPost, "/api/sign-in").
		JSON(`{"password":"wrong"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	require.True(t, clearedCookie(result, nonceCookie))

	request(h, http.MethodGet, "/api/check-access").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestLinkEndpoints(t *testing.T) {
	h := newTestHandler(t)

	// Without an account the link request is malformed.
	request(h, http.MethodGet, "/api/nonce-to-link").
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	token := signIn(t, h, "secret")

	request(h, http.MethodGet, "/api/nonce-to-link").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusOK).
		End()

	request(h, http.MethodGet, "/api/link/some-link-id").
		Cookie(nonceCookie, token).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestLinkConsumeUnauthenticated(t *testing.T) {
	h := newTestHandler(t)
	signIn(t, h, "secret")

	result := request(h, http.MethodGet, "/api/link/some-link-id").
		Cookie(nonceCookie, "bogus").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	require.True(t, clearedCookie(result, nonceCookie))
}
