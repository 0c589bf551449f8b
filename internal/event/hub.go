package event

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub 事件推送连接管理中心
// 对外广播竞争经济事件（开局、结算、领奖、周期推进）。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 地址到客户端的映射（按地址订阅）
	addrClients map[string][]*Client
	addrMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *Message

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 日志
	logger *zap.Logger
}

// Message 事件推送消息
type Message struct {
	Type      string          `json:"type"`       // 事件类型
	EventID   string          `json:"event_id"`   // 事件号
	Address   string          `json:"address,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	EpochID   uint32          `json:"epoch_id,omitempty"`
	Data      json.RawMessage `json:"data"`      // 事件数据
	Timestamp int64           `json:"timestamp"` // 时间戳
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeSubscribe = "subscribe"

	// 经济事件
	MessageTypeGameStarted    = "game_started"
	MessageTypeGameEnded      = "game_ended"
	MessageTypeRewardsClaimed = "rewards_claimed"
	MessageTypeTimeMultReset  = "time_multiplier_reset"
	MessageTypeEpochAdvanced  = "epoch_advanced"
	MessageTypeEpochFinalized = "epoch_finalized"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		addrClients: make(map[string][]*Client),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	// 启动心跳检测
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	// 添加到地址订阅映射
	if client.Address != "" {
		h.addrMu.Lock()
		h.addrClients[client.Address] = append(h.addrClients[client.Address], client)
		h.addrMu.Unlock()
	}

	h.logger.Info("事件客户端连接",
		zap.String("client_id", client.ID),
		zap.String("address", client.Address))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	// 从地址订阅映射中移除
	if client.Address != "" {
		h.addrMu.Lock()
		clients := h.addrClients[client.Address]
		for i, c := range clients {
			if c.ID == client.ID {
				h.addrClients[client.Address] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.addrClients[client.Address]) == 0 {
			delete(h.addrClients, client.Address)
		}
		h.addrMu.Unlock()
	}

	h.logger.Info("事件客户端断开",
		zap.String("client_id", client.ID),
		zap.String("address", client.Address))
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区满，跳过
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToAddress 发送消息给订阅指定地址的所有客户端
func (h *Hub) SendToAddress(address string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.addrMu.RLock()
	clients := h.addrClients[address]
	h.addrMu.RUnlock()

	if len(clients) == 0 {
		return ErrAddressNotConnected
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("地址客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("address", address))
		}
	}

	return nil
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat 运行心跳检测
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		ping := &Message{
			Type:      MessageTypePing,
			Timestamp: time.Now().Unix(),
		}
		h.broadcast <- ping
	}
}

// Broadcast 广播消息（公开方法）
func (h *Hub) Broadcast(message *Message) {
	h.broadcast <- message
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
