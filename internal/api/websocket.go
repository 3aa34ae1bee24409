// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edulab-kr/evalassist/internal/metrics"
	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 << 10
	wsSendBuffer     = 16
)

// wsPongWait 两次 pong 之间允许的最长间隔，ping 周期取其 9/10
var wsPongWait = 60 * time.Second

// 会话中支持的操作
const (
	OpImprove   = "improve"
	OpOptions   = "options"
	OpCriteria  = "criteria"
	OpCriterion = "criterion"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RefineMessage 客户端发来的一次请求
type RefineMessage struct {
	ID                string                     `json:"id"`
	Op                string                     `json:"op"`
	Text              string                     `json:"text,omitempty"`
	NumOptions        int                        `json:"num_options,omitempty"`
	EvaluationElement string                     `json:"evaluation_element,omitempty"`
	OriginalCriteria  models.CriteriaSet         `json:"original_criteria,omitempty"`
	Level             string                     `json:"level,omitempty"`
	OriginalText      string                     `json:"original_text,omitempty"`
	Context           *models.ImprovementContext `json:"context,omitempty"`
}

// RefineReply 对应请求的回复，id 原样带回
type RefineReply struct {
	ID     string                       `json:"id"`
	Op     string                       `json:"op"`
	Result models.TextImprovementResult `json:"result"`
}

// RefineSession 一个 WebSocket 连接
type RefineSession struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closed    int32 // 0=开启，1=关闭
	createdAt time.Time
	pongWait  time.Duration
	done      chan struct{} // Close 时关闭
	stopped   chan struct{} // writeLoop 退出且连接已关闭
}

// Close 通知写协程发送剩余回复后关闭连接
func (s *RefineSession) Close() {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		close(s.done)
	}
}

// IsClosed 检查会话是否已关闭
func (s *RefineSession) IsClosed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}

// enqueue 放入发送队列，会话关闭后丢弃
func (s *RefineSession) enqueue(reply RefineReply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		utils.GetLogger().Error("序列化回复失败", map[string]interface{}{"error": err.Error()})
		return
	}

	select {
	case s.send <- payload:
	case <-s.done:
	}
}

// RefineSessionManager 跟踪所有活跃会话
type RefineSessionManager struct {
	sessions map[string]*RefineSession
	mutex    sync.RWMutex
}

// NewRefineSessionManager 创建会话管理器
func NewRefineSessionManager() *RefineSessionManager {
	return &RefineSessionManager{
		sessions: make(map[string]*RefineSession),
	}
}

func (m *RefineSessionManager) register(s *RefineSession) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions[s.id] = s
	metrics.WebSocketSessions.Inc()
}

func (m *RefineSessionManager) unregister(s *RefineSession) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sessions[s.id]; ok {
		delete(m.sessions, s.id)
		metrics.WebSocketSessions.Dec()
	}
	s.Close()
}

// Count 活跃会话数
func (m *RefineSessionManager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Shutdown 关闭所有会话
func (m *RefineSessionManager) Shutdown() {
	m.mutex.Lock()
	sessions := make([]*RefineSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.Unlock()

	for _, s := range sessions {
		m.unregister(s)
	}
	utils.GetLogger().Info("WebSocket 会话已全部关闭", map[string]interface{}{"count": len(sessions)})
}

// RefineWebSocket 处理 /ws/refine 连接
func (h *Handler) RefineWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("WebSocket 升级失败", map[string]interface{}{"error": err.Error()})
		return
	}

	session := &RefineSession{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		createdAt: time.Now(),
		pongWait:  wsPongWait,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	h.Sessions.register(session)
	defer func() {
		h.Sessions.unregister(session)
		<-session.stopped
	}()

	logger := utils.GetLogger()
	logger.Info("WebSocket 会话已建立", map[string]interface{}{"session_id": session.id, "client_ip": c.ClientIP()})

	go h.writeLoop(session)
	h.readLoop(session)

	logger.Info("WebSocket 会话已结束", map[string]interface{}{
		"session_id": session.id,
		"duration_s": int(time.Since(session.createdAt).Seconds()),
	})
}

// readLoop 逐条处理请求，同一会话内按顺序回复
func (h *Handler) readLoop(session *RefineSession) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-session.done
		cancel()
	}()

	armDeadline := func() error {
		return session.conn.SetReadDeadline(time.Now().Add(session.pongWait))
	}
	session.conn.SetReadLimit(wsMaxMessageSize)
	armDeadline()
	session.conn.SetPongHandler(func(string) error { return armDeadline() })

	for {
		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				utils.GetLogger().Warn("WebSocket 读取错误", map[string]interface{}{"session_id": session.id, "error": err.Error()})
			}
			return
		}

		var msg RefineMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			session.enqueue(RefineReply{Result: models.TextImprovementResult{Error: "invalid message: " + err.Error()}})
			continue
		}

		// 远程调用可能超过 pongWait，期间 pong 无人读取
		session.conn.SetReadDeadline(time.Time{})
		result := h.dispatch(ctx, msg)
		if ctx.Err() != nil {
			return
		}
		session.enqueue(RefineReply{ID: msg.ID, Op: msg.Op, Result: result})
		armDeadline()
	}
}

// writeLoop 独占写连接并定时发送 ping；会话关闭时先发完队列中的回复
func (h *Handler) writeLoop(session *RefineSession) {
	ticker := time.NewTicker(session.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		session.Close()
		session.conn.Close()
		close(session.stopped)
	}()

	for {
		select {
		case payload := <-session.send:
			if err := session.write(websocket.TextMessage, payload); err != nil {
				utils.GetLogger().Warn("WebSocket 写入失败", map[string]interface{}{"session_id": session.id, "error": err.Error()})
				return
			}

		case <-ticker.C:
			if err := session.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-session.done:
			session.flush()
			session.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}

func (s *RefineSession) write(messageType int, payload []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(messageType, payload)
}

// flush 写出已入队但尚未发送的回复
func (s *RefineSession) flush() {
	for {
		select {
		case payload := <-s.send:
			if err := s.write(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

// dispatch 把会话消息路由到对应的改写操作
func (h *Handler) dispatch(ctx context.Context, msg RefineMessage) models.TextImprovementResult {
	switch msg.Op {
	case OpImprove:
		return h.Refiner.ImproveOne(ctx, msg.Text, msg.Context)
	case OpOptions:
		return h.Refiner.ImproveOptions(ctx, msg.Text, msg.Context, msg.NumOptions)
	case OpCriteria:
		return h.Refiner.GenerateCriteriaSet(ctx, msg.EvaluationElement, msg.OriginalCriteria, msg.Context)
	case OpCriterion:
		// 未知等级交给服务层校验
		return h.Refiner.GenerateSingleCriterion(ctx, models.Level(msg.Level), msg.EvaluationElement, msg.OriginalText, msg.Context)
	default:
		return models.TextImprovementResult{Error: "unknown op: " + msg.Op}
	}
}
