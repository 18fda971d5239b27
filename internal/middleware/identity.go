package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID pulls the user identifier that JWTAuth stored in the Echo
// context. When no token is present, "anon" is returned so that anonymous
// traffic still gets a stable rate-limit bucket.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user's identifier from context.
// JWTAuth stores the raw "sub" claim, which the JWT library decodes as a
// float64; string values are accepted as well for forward compatibility.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	}
	return "anon"
}
