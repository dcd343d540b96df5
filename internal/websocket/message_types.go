package websocket

import (
	"encoding/json"
	"time"
)

// Типы сообщений ленты изменений
const (
	// WELCOME отправляется клиенту сразу после подключения
	WELCOME = "WELCOME"

	// VEHICLE_EVENT сообщает о создании, изменении или удалении записи
	VEHICLE_EVENT = "VEHICLE_EVENT"
)

// Message: конверт всех исходящих сообщений
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// encodeMessage сериализует конверт сообщения
func encodeMessage(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UTC()})
}
