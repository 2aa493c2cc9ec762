package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/pomodoro"
	"focusrooms/backend/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

type timerAction func(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError)

func (h *TimerHandler) run(c *gin.Context, action timerAction) {
	snapshot, apiErr := action(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": snapshot})
}

func (h *TimerHandler) Get(c *gin.Context) {
	h.run(c, h.timerService.Snapshot)
}

func (h *TimerHandler) Start(c *gin.Context) {
	h.run(c, h.timerService.Start)
}

func (h *TimerHandler) Pause(c *gin.Context) {
	h.run(c, h.timerService.Pause)
}

func (h *TimerHandler) Reset(c *gin.Context) {
	h.run(c, h.timerService.Reset)
}

func (h *TimerHandler) SelectPhase(c *gin.Context) {
	var req service.SelectPhaseInput
	if !bindJSON(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError) {
		return h.timerService.SelectPhase(ctx, roomID, userID, req)
	})
}
