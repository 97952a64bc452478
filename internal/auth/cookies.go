package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	accessCookieMaxAge  = 3600
	refreshCookieMaxAge = 604800
)

// CookieFactory builds the credential cookies. Secure is enabled in production.
type CookieFactory struct {
	Secure bool
}

// Access returns the access_token cookie.
func (f CookieFactory) Access(value string) *fiber.Cookie {
	return f.cookie(AccessTokenCookie, value, accessCookieMaxAge)
}

// Refresh returns the refresh_token cookie.
func (f CookieFactory) Refresh(value string) *fiber.Cookie {
	return f.cookie(RefreshTokenCookie, value, refreshCookieMaxAge)
}

// Expired returns a cookie that removes name from the client.
func (f CookieFactory) Expired(name string) *fiber.Cookie {
	c := f.cookie(name, "", 0)
	c.Expires = time.Unix(0, 0)
	return c
}

func (f CookieFactory) cookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   f.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
