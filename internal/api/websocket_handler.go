package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kalepail/blendizzard/internal/event"
	"go.uber.org/zap"
)

// WebSocketHandler 事件推送WebSocket处理器
type WebSocketHandler struct {
	hub      *event.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *event.Hub, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// HandleEvents 事件订阅连接
// @Summary 事件推送WebSocket
// @Description 订阅对局、周期与奖励事件；address参数指定关注的玩家地址
// @Tags WebSocket
// @Param address query string false "订阅的玩家地址"
// @Router /ws/events [get]
func (h *WebSocketHandler) HandleEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败", zap.Error(err))
		return
	}

	client := event.NewClient(h.hub, conn, c.Query("address"))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
