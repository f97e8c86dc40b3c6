package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/services/landtitle"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamEvent 推送给界面的一条消息
type StreamEvent struct {
	// Type snapshot 或 transition
	Type       string          `json:"type"`
	State      *StateResponse  `json:"state,omitempty"`
	From       landtitle.State `json:"from,omitempty"`
	To         landtitle.State `json:"to,omitempty"`
	TxID       string          `json:"txId,omitempty"`
	Error      *errorResponse  `json:"error,omitempty"`
	OccurredAt *time.Time      `json:"at,omitempty"`
}

// handleStream 推送流程状态迁移
//
// **流程**：
// 1. 连接建立后先推送当前快照
// 2. 之后每次迁移推送一条 transition
// 3. 客户端断开或服务关闭时取消订阅
func (s *Server) handleStream(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Close WebSocket connection", zap.Error(err))
		}
	}()

	events, unsubscribe := w.Subscribe()
	defer unsubscribe()

	// 读循环只处理控制帧，用于探测断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("WebSocket connection closed unexpectedly", zap.Error(err))
				}
				return
			}
		}
	}()

	snap := s.snapshot()
	if err := s.writeEvent(conn, StreamEvent{Type: "snapshot", State: &snap}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case t, ok := <-events:
			if !ok {
				return
			}
			at := t.At
			ev := StreamEvent{Type: "transition", From: t.From, To: t.To, TxID: t.TxID, OccurredAt: &at}
			if t.Error != nil {
				ev.Error = toProblem(t.Error)
			}
			if err := s.writeEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev StreamEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Debug("Write WebSocket event failed", zap.Error(err))
		return err
	}
	return nil
}
