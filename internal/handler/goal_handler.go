package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/service"
)

// ConfirmHeader carries the explicit confirmation a goal delete requires.
const ConfirmHeader = "X-Confirm"

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

func (h *GoalHandler) List(c *gin.Context) {
	showCompleted, _ := strconv.ParseBool(c.Query("showCompleted"))
	board, apiErr := h.goalService.Board(c.Request.Context(), c.Param("id"), middleware.UserID(c), showCompleted)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *GoalHandler) Create(c *gin.Context) {
	var req service.CreateGoalInput
	if !bindJSON(c, &req) {
		return
	}

	goal, apiErr := h.goalService.Create(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

func (h *GoalHandler) Toggle(c *gin.Context) {
	goal, apiErr := h.goalService.Toggle(c.Request.Context(), c.Param("goalId"), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

func (h *GoalHandler) Delete(c *gin.Context) {
	confirmed := strings.EqualFold(c.GetHeader(ConfirmHeader), "delete")
	if !confirmed {
		confirmed, _ = strconv.ParseBool(c.Query("confirm"))
	}

	if apiErr := h.goalService.Delete(c.Request.Context(), c.Param("goalId"), middleware.UserID(c), confirmed); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
