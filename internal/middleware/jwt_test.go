package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"

	newContext := func(authHeader string) (echo.Context, *httptest.ResponseRecorder) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	okHandler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("valid token passes claims to context", func(t *testing.T) {
		raw := signToken(t, secret, jwt.MapClaims{
			"sub":  float64(7),
			"role": "ORGANIZER",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		c, rec := newContext("Bearer " + raw)
		if err := JWTAuth(secret)(okHandler)(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got, _ := c.Get("role").(string); got != "ORGANIZER" {
			t.Fatalf("role not stored, got %v", c.Get("role"))
		}
		if got, _ := c.Get("user_id").(float64); uint64(got) != 7 {
			t.Fatalf("user_id not stored, got %v", c.Get("user_id"))
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		c, rec := newContext("")
		if err := JWTAuth(secret)(okHandler)(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		raw := signToken(t, "other-secret", jwt.MapClaims{
			"sub": float64(7),
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		c, rec := newContext("Bearer " + raw)
		if err := JWTAuth(secret)(okHandler)(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		raw := signToken(t, secret, jwt.MapClaims{
			"sub": float64(7),
			"exp": time.Now().Add(-time.Minute).Unix(),
		})
		c, rec := newContext("Bearer " + raw)
		if err := JWTAuth(secret)(okHandler)(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
