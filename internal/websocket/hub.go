package websocket

import (
	"log"
	"sync"
)

// Hub хранит локальные соединения и рассылает им сообщения.
// Запись в канал клиента и его закрытие происходят только под mu.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub создает пустой хаб
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register добавляет клиента и отправляет ему приветствие.
// После Close клиент не добавляется, его канал сразу закрывается.
func (h *Hub) Register(c *Client) {
	welcome, err := encodeMessage(WELCOME, map[string]interface{}{
		"connection_id": c.ConnectionID,
		"user_id":       c.UserID,
	})
	if err != nil {
		log.Printf("[Hub] Ошибка кодирования приветствия: %v", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.closeSend()
		return
	}
	h.clients[c] = struct{}{}
	if welcome != nil {
		c.enqueue(welcome)
	}
	log.Printf("[Hub] Клиент подключен (UserID: %d, ConnID: %s), всего: %d", c.UserID, c.ConnectionID, len(h.clients))
}

// Unregister удаляет клиента и закрывает его канал отправки. Повторный вызов безопасен.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closeSend()
	log.Printf("[Hub] Клиент отключен (UserID: %d, ConnID: %s), осталось: %d", c.UserID, c.ConnectionID, len(h.clients))
}

// BroadcastBytes отправляет сообщение всем локальным клиентам.
// Клиенты с переполненным буфером отключаются.
func (h *Hub) BroadcastBytes(message []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		if !c.enqueue(message) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("[Hub] Буфер клиента переполнен (UserID: %d, ConnID: %s), отключаем", c.UserID, c.ConnectionID)
		h.Unregister(c)
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.closeSend()
	}
}
