package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/state"
)

// RedisConfig is the envconfig-tagged connection configuration.
type RedisConfig struct {
	Addr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password  string        `envconfig:"REDIS_PASSWORD" default:""`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string        `envconfig:"REDIS_KEY_PREFIX" default:"fieldagent:session:"`
	TTL       time.Duration `envconfig:"REDIS_TTL" default:"168h"`
}

// RedisStore persists checkpoints in Redis with a key prefix and TTL. The
// TTL refreshes on every save, so only abandoned sessions expire.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}
}

// NewRedisClient dials Redis from the configuration and verifies the
// connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errx.Wrap(errx.KindBackend, "redis ping failed", err)
	}
	return client, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*state.Conversation, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(sessionID)
		}
		return nil, errx.Wrap(errx.KindBackend, "redis get failed", err)
	}
	return Decode(payload)
}

func (s *RedisStore) Save(ctx context.Context, conv *state.Conversation) error {
	payload, err := Encode(conv)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(conv.SessionID), payload, s.ttl).Err(); err != nil {
		return errx.Wrap(errx.KindBackend, "redis set failed", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return errx.Wrap(errx.KindBackend, "redis del failed", err)
	}
	return nil
}
