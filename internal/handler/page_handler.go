package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/service"
)

// PageHandler serves the data behind each navigable page. The user id it
// reports comes from the unverified cookie token and is a display hint only;
// user-scoped data is fetched through the authenticated API.
type PageHandler struct {
	roomService *service.RoomService
}

func NewPageHandler(roomService *service.RoomService) *PageHandler {
	return &PageHandler{roomService: roomService}
}

func (h *PageHandler) Landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":  "landing",
		"links": gin.H{"login": "/auth/login", "signup": "/auth/signup"},
	})
}

func (h *PageHandler) Login(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "login", "submit": "/api/auth/login", "callback": "/auth/callback"})
}

func (h *PageHandler) Signup(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "signup", "submit": "/api/auth/register", "callback": "/auth/callback"})
}

func (h *PageHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":   "dashboard",
		"userId": middleware.UserID(c),
		"rooms":  h.roomService.List(c.Request.Context()),
	})
}

// Room sends visitors of an unknown room back to the dashboard.
func (h *PageHandler) Room(c *gin.Context) {
	room, apiErr := h.roomService.Get(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":   "room",
		"userId": middleware.UserID(c),
		"room":   room,
		"live":   "/api/rooms/" + room.ID + "/live",
	})
}

func (h *PageHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":   "analytics",
		"userId": middleware.UserID(c),
		"report": "/api/analytics",
	})
}
