package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/authsession"
	"focusrooms/backend/internal/service"
)

// SessionHandler moves tokens between the client and its cookies.
type SessionHandler struct {
	authService   *service.AuthService
	secureCookies bool
}

type callbackRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func NewSessionHandler(authService *service.AuthService, secureCookies bool) *SessionHandler {
	return &SessionHandler{authService: authService, secureCookies: secureCookies}
}

func (h *SessionHandler) Callback(c *gin.Context) {
	var req callbackRequest
	_ = c.ShouldBindJSON(&req)
	if req.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No access token provided"})
		return
	}

	authsession.SetCookies(c, req.AccessToken, req.RefreshToken, h.secureCookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if token := authsession.AccessToken(c); token != "" {
		h.authService.Revoke(c.Request.Context(), token)
	}
	authsession.ClearCookies(c, h.secureCookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
