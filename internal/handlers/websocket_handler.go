package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sportshub/internal/services"
	"sportshub/pkg/config"
	"sportshub/pkg/logger"
	"sportshub/pkg/pubsub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	pongWait     = 300 * time.Second
)

// WebSocketHandler 快照推送
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	bus         pubsub.Bus
	syncService *services.SyncService
	log         *logrus.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(bus pubsub.Bus, syncService *services.SyncService, allowedOrigins []string) *WebSocketHandler {
	if allowedOrigins == nil {
		allowedOrigins = config.GetConfig().CORS.AllowOrigins
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 同源请求没有Origin
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}
				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 32,
		},
		bus:         bus,
		syncService: syncService,
		log:         logger.GetLogger(),
	}
}

// SnapshotStream 推送会话快照：连接后先发送当前快照，之后每次同步替换都推送一次
func (h *WebSocketHandler) SnapshotStream(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	tenantID, _ := session.ActiveTenant()
	log := h.log.WithFields(logrus.Fields{
		"user_id":     session.UserID,
		"tenant_id":   tenantID,
		"remote_addr": c.ClientIP(),
	})
	log.Info("Snapshot WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readPump(conn, cancel)

	// 先订阅再取初始快照，避免漏掉中间的替换
	channel := services.SnapshotChannel(session.Key())
	ch, unsubscribe, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		log.WithError(err).Error("订阅快照频道失败")
		return
	}
	defer unsubscribe()

	if err := h.sendInitial(ctx, conn, session, channel); err != nil {
		log.WithError(err).Warn("发送初始快照失败")
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Snapshot WebSocket connection closed")
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case payload, ok := <-ch:
			if !ok {
				return
			}
			if err := h.write(conn, payload); err != nil {
				log.WithError(err).Error("Failed to send snapshot to client")
				return
			}
		}
	}
}

// sendInitial 优先使用总线缓存，没有缓存时同步一次
func (h *WebSocketHandler) sendInitial(ctx context.Context, conn *websocket.Conn, session services.Session, channel string) error {
	if payload, err := h.bus.Cached(ctx, channel); err == nil {
		return h.write(conn, payload)
	}

	snap, err := h.syncService.Current(ctx, session)
	if snap == nil {
		// 没有任何成功的快照，等待下一次发布
		if err != nil {
			h.log.WithError(err).Warn("初始同步失败")
		}
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return h.write(conn, payload)
}

func (h *WebSocketHandler) write(conn *websocket.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readPump 处理客户端消息
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// 读取消息（主要是处理ping/pong）
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			break
		}
	}
}

// matchOrigin 检查origin是否匹配allowed模式
// 支持精确匹配和通配符匹配（如 *.example.com）
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	domain := allowed[2:]
	// http://sub.example.com:8080 -> sub.example.com
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
