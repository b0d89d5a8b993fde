package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pantry-planner/internal/logger"
)

const (
	redisKeyPrefix = "pantry:kv:"
	redisChannel   = "pantry:kv:changed"
	redisTimeout   = 3 * time.Second
)

// RedisStore shares keys between processes through Redis. Writes publish the
// key name on a channel so every process holding subscribers is told about
// the change, including the writer itself.
type RedisStore struct {
	client *redis.Client
	log    *logger.Logger
	*hub

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisStore connects to addr and starts listening for change messages.
func NewRedisStore(ctx context.Context, addr string, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	s := &RedisStore{
		client: client,
		log:    log,
		hub:    newHub(),
		pubsub: client.Subscribe(ctx, redisChannel),
		done:   make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

func (s *RedisStore) listen() {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		s.notify(msg.Payload)
	}
}

func (s *RedisStore) Read(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("failed to read redis key", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (s *RedisStore) Write(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write redis key %s: %w", key, errors.Join(ErrUnavailable, err))
	}
	if err := s.client.Publish(ctx, redisChannel, key).Err(); err != nil {
		s.log.Warn("failed to publish change", "key", key, "error", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return errors.Join(err, s.client.Close())
}
