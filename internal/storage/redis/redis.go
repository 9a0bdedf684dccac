package redis

import (
	"context"
	"fmt"
	"time"

	"deskpet/internal/config"
	"deskpet/internal/storage"

	"github.com/redis/go-redis/v9"
)

const (
	keySettings     = "deskpet:settings"
	keySessionIndex = "deskpet:sessions"
	keySessionFmt   = "deskpet:session:%s"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client *redis.Client
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Settings() storage.SettingsStore { return &settingsStore{client: s.client} }

func (s *Store) Sessions() storage.SessionStore { return &sessionStore{client: s.client} }

type settingsStore struct {
	client *redis.Client
}

func (s *settingsStore) Load(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, keySettings).Result()
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (s *settingsStore) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make(map[string]interface{}, len(values))
	for k, v := range values {
		args[k] = v
	}
	return s.client.HSet(ctx, keySettings, args).Err()
}
