package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieAccess and SessionCookieRefresh name the cookies the confirm
// flow sets when establishing a session.
const (
	SessionCookieAccess  = "access_token"
	SessionCookieRefresh = "refresh_token"
)

// BearerFromHeader extracts the token from an Authorization: Bearer header,
// returning "" when absent or malformed.
func BearerFromHeader(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenFromRequest resolves a presented token with header > body/query >
// cookie precedence. bodyValue is the already-parsed body (or query) field
// for the endpoint; cookieName may be empty for endpoints that do not
// accept cookies.
func TokenFromRequest(c *fiber.Ctx, bodyValue, cookieName string) string {
	if v := BearerFromHeader(c); v != "" {
		return v
	}
	if bodyValue != "" {
		return bodyValue
	}
	if cookieName != "" {
		return c.Cookies(cookieName)
	}
	return ""
}
