package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/authsession"
	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/service"
)

const UserIDContextKey = "userID"

// Auth verifies the access token of every data call. The token comes from
// the Authorization header or, failing that, the session cookie.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		info, apiErr := authService.Verify(c.Request.Context(), token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, info.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *apperrors.APIError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := authsession.AccessToken(c); token != "" {
			return token, nil
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

// PageGuard redirects page requests using the unverified cookie token.
// Protected pages send anonymous visitors to the login page; entry pages
// send signed-in visitors to the dashboard.
func PageGuard(protected bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		hint := authsession.FromRequest(c.Request, time.Now())
		switch {
		case protected && !hint.Authenticated:
			c.Redirect(http.StatusFound, "/auth/login")
			c.Abort()
			return
		case !protected && hint.Authenticated:
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		if hint.Authenticated {
			c.Set(UserIDContextKey, hint.UserID)
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	value, ok := c.Get(UserIDContextKey)
	if !ok {
		return ""
	}
	userID, ok := value.(string)
	if !ok {
		return ""
	}
	return userID
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
