package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/config"
)

func cacheContext(target, routePattern string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(routePattern)
	return c
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	t.Run("distinct path parameters get distinct keys", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, cacheContext("/v1/events/1", "/v1/events/:id"))
		k2 := cacheKeyFrom(cfg, cacheContext("/v1/events/2", "/v1/events/:id"))
		if k1 == k2 {
			t.Fatalf("detail URLs for different ids must not share a key: %s", k1)
		}
	})

	t.Run("same URL yields a stable key", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, cacheContext("/v1/events/7", "/v1/events/:id"))
		k2 := cacheKeyFrom(cfg, cacheContext("/v1/events/7", "/v1/events/:id"))
		if k1 != k2 {
			t.Fatalf("expected identical keys, got %s and %s", k1, k2)
		}
	})

	t.Run("query string differentiates list keys", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, cacheContext("/v1/events?city=berlin", "/v1/events"))
		k2 := cacheKeyFrom(cfg, cacheContext("/v1/events?city=paris", "/v1/events"))
		if k1 == k2 {
			t.Fatalf("different queries must not share a key: %s", k1)
		}
	})

	t.Run("method_route strategy separates methods", func(t *testing.T) {
		mcfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "method_route"}
		get := cacheKeyFrom(mcfg, cacheContext("/v1/events/7", "/v1/events/:id"))

		e := echo.New()
		req := httptest.NewRequest(http.MethodHead, "/v1/events/7", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/events/:id")
		head := cacheKeyFrom(mcfg, c)

		if get == head {
			t.Fatalf("different methods must not share a key: %s", get)
		}
	})
}
