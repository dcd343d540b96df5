package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// DefaultFeedChannel: канал Redis для событий ленты в кластерном режиме
const DefaultFeedChannel = "vehicle-api:vehicle-events"

// VehicleFeed рассылает события изменений записей подключенным клиентам.
// В кластерном режиме события проходят через Pub/Sub, и каждый экземпляр
// (включая отправителя) рассылает их своим клиентам при получении.
type VehicleFeed struct {
	hub        *Hub
	provider   PubSubProvider
	channel    string
	instanceID string
	clustered  bool
}

// NewVehicleFeed создает ленту. Если provider == nil, события рассылаются только локально.
func NewVehicleFeed(hub *Hub, provider PubSubProvider, channel string) *VehicleFeed {
	if channel == "" {
		channel = DefaultFeedChannel
	}
	clustered := true
	switch provider.(type) {
	case nil, NoOpPubSub, *NoOpPubSub:
		clustered = false
	}
	return &VehicleFeed{
		hub:        hub,
		provider:   provider,
		channel:    channel,
		instanceID: uuid.New().String(),
		clustered:  clustered,
	}
}

// Start подписывается на канал кластера. Возвращается сразу; подписка живет до отмены ctx.
func (f *VehicleFeed) Start(ctx context.Context) error {
	if !f.clustered {
		return nil
	}
	msgs, err := f.provider.Subscribe(ctx, f.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe vehicle feed: %w", err)
	}
	log.Printf("[VehicleFeed] Экземпляр %s слушает канал %s", f.instanceID, f.channel)

	go func() {
		for raw := range msgs {
			var msg ClusterMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("[VehicleFeed] Некорректное сообщение кластера: %v", err)
				continue
			}
			f.hub.BroadcastBytes(msg.Payload)
		}
	}()
	return nil
}

// PublishVehicleEvent доставляет событие всем подписчикам ленты
func (f *VehicleFeed) PublishVehicleEvent(ctx context.Context, event entity.VehicleEvent) error {
	payload, err := encodeMessage(VEHICLE_EVENT, event)
	if err != nil {
		return fmt.Errorf("failed to encode vehicle event: %w", err)
	}

	if !f.clustered {
		f.hub.BroadcastBytes(payload)
		return nil
	}

	data, err := json.Marshal(ClusterMessage{
		InstanceID: f.instanceID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cluster message: %w", err)
	}
	return f.provider.Publish(ctx, f.channel, data)
}

// Hub возвращает локальный хаб ленты
func (f *VehicleFeed) Hub() *Hub {
	return f.hub
}
