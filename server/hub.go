package server

import "sync"

// Hub 连接 ID → 发送端，实现 Sender
type Hub struct {
	mu      sync.RWMutex
	clients map[ConnID]*ClientConn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[ConnID]*ClientConn)}
}

// Register 登记新连接
func (h *Hub) Register(id ConnID, c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = c
}

// Unregister 注销连接
func (h *Hub) Unregister(id ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Send 非阻塞投递；未知连接直接丢弃
func (h *Hub) Send(id ConnID, msg []byte) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if ok {
		c.Enqueue(msg)
	}
}

// Count 在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
