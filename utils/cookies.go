package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieWriter sets and clears the session cookies. Both cookies are always
// HttpOnly.
type CookieWriter struct {
	Secure bool
	Domain string
}

func (w CookieWriter) SetTokens(c *gin.Context, access, refresh string, accessTTL, refreshTTL time.Duration) {
	w.set(c, AccessTokenCookie, access, int(accessTTL.Seconds()))
	w.set(c, RefreshTokenCookie, refresh, int(refreshTTL.Seconds()))
}

func (w CookieWriter) ClearTokens(c *gin.Context) {
	w.set(c, AccessTokenCookie, "", -1)
	w.set(c, RefreshTokenCookie, "", -1)
}

func (w CookieWriter) set(c *gin.Context, name, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if w.Secure {
		sameSite = http.SameSiteNoneMode // for cross-site
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: sameSite,
	})
}
