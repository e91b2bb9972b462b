package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/voxhome/internal/db"
)

var _ db.Store = (*Store)(nil)

// DefaultClientName is reported by CLIENT LIST for every voxhome connection.
const DefaultClientName = "voxhome"

// Config holds connection parameters for a Redis or Valkey server.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	ClientName string
}

// Store backs devices, chat history, embedding cache and the durable vector
// store with plain hashes, strings and sorted sets. No modules are required.
type Store struct {
	client rueidis.Client
}

// NewStore connects with client-side caching off; every read goes to the server.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = DefaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// NewStoreForTest wraps an existing client, typically a rueidis mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings right away, then retries with a doubling delay capped
// at one second until the server answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := 50 * time.Millisecond
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-time.After(delay):
		}
		delay = min(delay*2, time.Second)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

// doMulti pipelines cmds and returns the results, or the first failure
// wrapped with op and the key at that position.
func (s *Store) doMulti(ctx context.Context, op string, keys []string, cmds []rueidis.Completed) ([]rueidis.RedisResult, error) {
	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil && !rueidis.IsRedisNil(err) {
			return nil, &db.Error{Op: op, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
	}
	return results, nil
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
