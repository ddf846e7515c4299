// Package redisstore shares storefront state between processes through Redis. Writes are
// announced on a pub/sub channel so other processes can react, the way browser tabs
// receive storage events.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/storage"
)

const (
	defaultPrefix  = "storefront:"
	defaultTimeout = 3 * time.Second
)

type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	origin  string
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)

type Option func(*Store)

// WithPrefix namespaces every key and the change channel.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

type changeMessage struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

func New(client *redis.Client, options ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
		origin:  uuid.NewString(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Open connects to the Redis server named by a redis:// URL.
func Open(url string, options ...Option) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisstore.Open] %w", err)
	}
	return New(redis.NewClient(opts), options...), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Get(key string) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[Store.Get] %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany writes all entries in one MULTI/EXEC and then announces the changed keys.
func (s *Store) SetMany(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	pairs := make([]interface{}, 0, len(values)*2)
	keys := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, s.key(k), v)
		keys = append(keys, k)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.MSet(ctx, pairs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[Store.SetMany] %w", err)
	}
	s.publish(ctx, keys)
	return nil
}

func (s *Store) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("[Store.Remove] %w", err)
	}
	s.publish(ctx, keys)
	return nil
}

// publish is best effort; the write already succeeded.
func (s *Store) publish(ctx context.Context, keys []string) {
	payload, err := json.Marshal(changeMessage{Origin: s.origin, Keys: keys})
	if err != nil {
		log.Err(err).Msg("redisstore: marshal change message")
		return
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("redisstore: publish change")
	}
}

// Watch reports keys changed by other Store instances until ctx is done.
func (s *Store) Watch(ctx context.Context, fn func(key string)) error {
	sub := s.client.Subscribe(ctx, s.channel())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("[Store.Watch] subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("[Store.Watch] subscription closed")
			}
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Warn().Err(err).Str("payload", msg.Payload).Msg("redisstore: ignoring malformed change message")
				continue
			}
			if change.Origin == s.origin {
				continue
			}
			for _, k := range change.Keys {
				fn(k)
			}
		}
	}
}
