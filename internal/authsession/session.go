// Package authsession stores bearer tokens in cookies and reads them back
// for routing hints. Nothing here verifies a signature; data access is
// always authorised separately.
package authsession

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessCookie  = "sb-access-token"
	RefreshCookie = "sb-refresh-token"
	CookieMaxAge  = 7 * 24 * 60 * 60
)

// Hint is what an unverified token claims about its holder.
type Hint struct {
	Authenticated bool
	UserID        string
	ExpiresAt     time.Time
}

// Inspect decodes a compact token without checking its signature. The holder
// counts as authenticated only when sub is present and exp lies after now.
func Inspect(token string, now time.Time) Hint {
	token = strings.TrimSpace(token)
	if token == "" {
		return Hint{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Hint{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Hint{}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Hint{}
	}
	if !exp.Time.After(now) {
		return Hint{UserID: sub, ExpiresAt: exp.Time}
	}
	return Hint{Authenticated: true, UserID: sub, ExpiresAt: exp.Time}
}

// FromRequest inspects the access token cookie of r.
func FromRequest(r *http.Request, now time.Time) Hint {
	cookie, err := r.Cookie(AccessCookie)
	if err != nil {
		return Hint{}
	}
	return Inspect(cookie.Value, now)
}

// SetCookies stores the token pair. An empty refresh token leaves that
// cookie untouched.
func SetCookies(c *gin.Context, accessToken, refreshToken string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, accessToken, CookieMaxAge, "/", "", secure, false)
	if refreshToken != "" {
		c.SetCookie(RefreshCookie, refreshToken, CookieMaxAge, "/", "", secure, false)
	}
}

func ClearCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", secure, false)
	c.SetCookie(RefreshCookie, "", -1, "/", "", secure, false)
}

// AccessToken returns the token from the cookie, if any.
func AccessToken(c *gin.Context) string {
	value, err := c.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return value
}
