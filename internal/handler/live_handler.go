package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/metrics"
	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/realtime"
	"focusrooms/backend/internal/service"
	"focusrooms/backend/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client messages on the live channel.
const (
	liveShowCompleted = "show_completed"
	liveToggleGoal    = "toggle_goal"
)

type liveMessage struct {
	Type   string `json:"type"`
	GoalID string `json:"goalId,omitempty"`
	Show   bool   `json:"show,omitempty"`
}

type liveError struct {
	Type  string               `json:"type"`
	Error *apperrors.APIError `json:"error"`
}

// LiveHandler streams a room's projections to one viewer over a websocket.
type LiveHandler struct {
	roomService *service.RoomService
	goalService *service.GoalService
	source      view.Source
	feed        realtime.Feed
	upgrader    websocket.Upgrader
}

func NewLiveHandler(
	roomService *service.RoomService,
	goalService *service.GoalService,
	source view.Source,
	feed realtime.Feed,
	allowedOrigins []string,
) *LiveHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &LiveHandler{
		roomService: roomService,
		goalService: goalService,
		source:      source,
		feed:        feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, wildcard := allowed["*"]
				_, ok := allowed[origin]
				return wildcard || ok
			},
		},
	}
}

func (h *LiveHandler) Serve(c *gin.Context) {
	roomID := c.Param("id")
	userID := middleware.UserID(c)
	if apiErr := h.roomService.RequireMember(c.Request.Context(), roomID, userID); apiErr != nil {
		writeError(c, apiErr)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	metrics.TrackLiveConnection(true)
	defer metrics.TrackLiveConnection(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roomView := view.Mount(ctx, roomID, h.source, h.feed)
	replies := make(chan []byte, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, roomView, replies)
		roomView.Close()
	}()

	h.readPump(ctx, conn, roomView, userID, replies)
	roomView.Close()
	<-done
	logging.Debug().Str("room_id", roomID).Str("user_id", userID).Msg("live viewer left")
}

func (h *LiveHandler) readPump(ctx context.Context, conn *websocket.Conn, roomView *view.RoomView, userID string, replies chan<- []byte) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("user_id", userID).Msg("websocket read failed")
			}
			return
		}

		var msg liveMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(replies, apperrors.BadRequest("invalid_message", "message is not valid JSON"))
			continue
		}

		switch msg.Type {
		case liveShowCompleted:
			roomView.SetShowCompleted(msg.Show)
		case liveToggleGoal:
			if _, apiErr := h.goalService.Toggle(ctx, msg.GoalID, userID); apiErr != nil {
				h.reply(replies, apiErr)
			}
		default:
			h.reply(replies, apperrors.BadRequest("unknown_message", "unknown message type "+msg.Type))
		}
	}
}

func (h *LiveHandler) reply(replies chan<- []byte, apiErr *apperrors.APIError) {
	payload, err := json.Marshal(liveError{Type: "error", Error: apiErr})
	if err != nil {
		return
	}
	select {
	case replies <- payload:
	default:
	}
}

// writePump owns every write to conn: the initial snapshot, projection
// frames, error replies and keepalive pings.
func (h *LiveHandler) writePump(conn *websocket.Conn, roomView *view.RoomView, replies <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	if err := writeFrame(conn, roomView.Snapshot()); err != nil {
		return
	}

	frames := roomView.Frames()
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case payload := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame view.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
