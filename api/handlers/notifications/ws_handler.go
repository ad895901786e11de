package notifications

import (
	"net/http"
	"time"

	"backend/internal/approval"
	"backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler 将审批事件实时推送给当前用户
type WebSocketHandler struct {
	bus      *approval.EventBus
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建处理器
func NewWebSocketHandler(bus *approval.EventBus) *WebSocketHandler {
	return &WebSocketHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect 升级连接并订阅当前用户的审批事件
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if h == nil || h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WebSocket 服务未就绪"})
		return
	}
	userID := auth.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少用户上下文"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	})

	events, cancel := h.bus.Subscribe(userID)
	_ = conn.WriteJSON(gin.H{
		"type":    "connected",
		"message": "WebSocket 已连接",
	})

	done := make(chan struct{})
	go h.writeLoop(conn, events, done)
	go h.readLoop(conn, cancel, done)
}

func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, events <-chan approval.ApprovalEvent, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "approval_event", "data": evt}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) readLoop(conn *websocket.Conn, cancel func(), done chan struct{}) {
	defer func() {
		cancel()
		close(done)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
