package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/vehicle-api/internal/config"
)

const redisPingTimeout = 5 * time.Second

// RedisOptions строит опции UniversalClient из конфигурации.
// Режим выбирается go-redis по набору опций: MasterName -> sentinel, несколько адресов -> cluster.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis: addrs or addr must be set")
	}

	opts := &redis.UniversalOptions{
		Addrs:    addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.MinRetryBackoff > 0 {
		opts.MinRetryBackoff = time.Duration(cfg.MinRetryBackoff) * time.Millisecond
	}
	if cfg.MaxRetryBackoff > 0 {
		opts.MaxRetryBackoff = time.Duration(cfg.MaxRetryBackoff) * time.Millisecond
	}

	switch cfg.Mode {
	case "", "single":
		// Один адрес, даже если в списке несколько: иначе go-redis выберет cluster
		opts.Addrs = addrs[:1]
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, fmt.Errorf("redis: sentinel mode requires master_name")
		}
		opts.MasterName = cfg.MasterName
	case "cluster":
		if cfg.DB != 0 {
			return nil, fmt.Errorf("redis: cluster mode supports only db 0")
		}
	default:
		return nil, fmt.Errorf("redis: unsupported mode %q", cfg.Mode)
	}
	return opts, nil
}

// NewUniversalRedisClient создает клиент Redis и проверяет подключение
func NewUniversalRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", cfg.Mode, opts.Addrs, err)
	}

	log.Printf("[Database] Redis подключен (mode: %s, addrs: %v)", cfg.Mode, opts.Addrs)
	return client, nil
}
