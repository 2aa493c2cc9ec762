package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req service.CreateRoomInput
	if !bindJSON(c, &req) {
		return
	}

	room, apiErr := h.roomService.Create(c.Request.Context(), middleware.UserID(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *RoomHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.roomService.List(c.Request.Context())})
}

func (h *RoomHandler) Get(c *gin.Context) {
	room, apiErr := h.roomService.Get(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) Join(c *gin.Context) {
	result, apiErr := h.roomService.Join(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RoomHandler) Leave(c *gin.Context) {
	participant, apiErr := h.roomService.Leave(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func (h *RoomHandler) Participants(c *gin.Context) {
	roomID := c.Param("id")
	if apiErr := h.roomService.RequireMember(c.Request.Context(), roomID, middleware.UserID(c)); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, h.roomService.Presence(c.Request.Context(), roomID))
}
