package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, r *Resolver, mutate func(*http.Request)) (hash, cid string, rec *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/", func(c echo.Context) error {
		hash = FromContext(c)
		cid = ClientIDFromContext(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en")
	if mutate != nil {
		mutate(req)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return hash, cid, rec
}

func TestResolverStableForSameClient(t *testing.T) {
	r := &Resolver{}
	withCid := func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "cid", Value: "client-1"})
	}

	h1, cid1, _ := resolve(t, r, withCid)
	h2, cid2, _ := resolve(t, r, withCid)

	assert.Equal(t, "client-1", cid1)
	assert.Equal(t, cid1, cid2)
	assert.NotEmpty(t, h1)
	assert.Equal(t, h1, h2)
}

func TestResolverDivergesAcrossClients(t *testing.T) {
	r := &Resolver{}
	h1, _, _ := resolve(t, r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "cid", Value: "client-1"})
	})
	h2, _, _ := resolve(t, r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "cid", Value: "client-2"})
	})
	h3, _, _ := resolve(t, r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "cid", Value: "client-1"})
		req.Header.Set("User-Agent", "other-agent/2.0")
	})

	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestResolverMintsClientCookie(t *testing.T) {
	r := &Resolver{}
	hash, cid, rec := resolve(t, r, nil)

	require.NotEmpty(t, cid)
	assert.NotEmpty(t, hash)

	var minted *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultClientCookie {
			minted = c
		}
	}
	require.NotNil(t, minted)
	assert.Equal(t, cid, minted.Value)
}

func TestResolverCustomCookieName(t *testing.T) {
	r := &Resolver{CookieName: "device"}
	_, cid, _ := resolve(t, r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "device", Value: "client-9"})
	})
	assert.Equal(t, "client-9", cid)
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("a", "b"), Hash("a", "b"))
	assert.NotEqual(t, Hash("a", "b"), Hash("a", "c"))
	assert.Len(t, Hash("a"), 64)
}
