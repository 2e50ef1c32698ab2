// Package notify listens for sensor updates and invalidates the tiles
// derived from sensor data.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nahlund/backend/tileserver/internal/repository/cache"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Evictor drops every cached tile of a kind.
type Evictor interface {
	Evict(kind cache.Kind) (memory, disk int)
}

// Subscriber evicts water tiles whenever a message arrives on the sensor
// data channel, since every water tile may depend on the new reading.
type Subscriber struct {
	client  *redis.Client
	channel string
	evictor Evictor
	logger  logger.Logger
}

func NewSubscriber(cfg RedisConfig, evictor Evictor, l logger.Logger) (*Subscriber, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Subscriber{
		client:  client,
		channel: cfg.Channel,
		evictor: evictor,
		logger:  l,
	}, nil
}

// Run consumes notifications until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	s.logger.Info("subscribed to sensor updates", "channel", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(msg.Channel, msg.Payload)
		}
	}
}

func (s *Subscriber) handle(channel, payload string) {
	memory, disk := s.evictor.Evict(cache.WaterTile)
	s.logger.Info("sensor update received, water tiles evicted",
		"channel", channel,
		"payload_size", len(payload),
		"memory", memory,
		"disk", disk,
	)
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
