package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pubSubPingTimeout = 5 * time.Second
	pubSubBufferSize  = 100
)

// ErrAlreadySubscribed возвращается при повторной подписке на тот же канал
var ErrAlreadySubscribed = errors.New("already subscribed to channel")

// PubSubProvider связывает ленты разных экземпляров сервиса
type PubSubProvider interface {
	Publish(ctx context.Context, channel string, message []byte) error
	// Subscribe возвращает канал сообщений, который закрывается при отмене ctx или Close
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ClusterMessage: конверт события ленты между экземплярами
type ClusterMessage struct {
	InstanceID string          `json:"instance_id"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NoOpPubSub используется, когда кластерный режим отключен
type NoOpPubSub struct{}

func (NoOpPubSub) Publish(context.Context, string, []byte) error { return nil }

func (NoOpPubSub) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (NoOpPubSub) Close() error { return nil }

// RedisPubSub передает события ленты через Redis Pub/Sub.
// Клиент Redis принадлежит вызывающей стороне и здесь не закрывается.
type RedisPubSub struct {
	client redis.UniversalClient
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

// NewRedisPubSub проверяет клиент и создает провайдер
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client is required for RedisPubSub")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pubSubPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisPubSub{
		client: client,
		done:   make(chan struct{}),
		subs:   make(map[string]*redis.PubSub),
	}, nil
}

func (p *RedisPubSub) Publish(ctx context.Context, channel string, message []byte) error {
	if err := p.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subs[channel]; ok {
		return nil, fmt.Errorf("%w %s", ErrAlreadySubscribed, channel)
	}

	sub := p.client.Subscribe(ctx, channel)
	// Receive дожидается подтверждения подписки, иначе первые события могут потеряться
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	p.subs[channel] = sub
	log.Printf("[RedisPubSub] Подписка на канал '%s'", channel)

	out := make(chan []byte, pubSubBufferSize)
	go p.forward(ctx, channel, sub, out)
	return out, nil
}

// forward перекладывает сообщения Redis в out до отмены ctx или Close
func (p *RedisPubSub) forward(ctx context.Context, channel string, sub *redis.PubSub, out chan<- []byte) {
	defer func() {
		p.mu.Lock()
		delete(p.subs, channel)
		p.mu.Unlock()
		sub.Close()
		close(out)
		log.Printf("[RedisPubSub] Подписка на канал '%s' закрыта", channel)
	}()

	in := sub.Channel()
	for {
		var payload []byte
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			payload = []byte(msg.Payload)
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}

		select {
		case out <- payload:
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}

// Close завершает все подписки
func (p *RedisPubSub) Close() error {
	p.once.Do(func() { close(p.done) })

	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for channel, sub := range p.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}
