// Package store maps per-chat notes onto Redis hashes.
//
// Each chat is one hash keyed by its id; each field is a lower-cased
// username and its value the user's note.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ru2chhw/confbot/pkg/metrics"
)

// NoteStore is the key-value surface the command handlers need.
type NoteStore interface {
	SetNote(ctx context.Context, chatID int64, username, text string) error
	DeleteNote(ctx context.Context, chatID int64, username string) error
	// GetNote returns found=false when the user has no note.
	GetNote(ctx context.Context, chatID int64, username string) (text string, found bool, err error)
	GetAllNotes(ctx context.Context, chatID int64) (map[string]string, error)
}

// StoreError is returned for any failed store operation. Query describes
// the command that was sent to the store.
type StoreError struct {
	Query string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Query, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NormalizeUsername turns a user-supplied name into a field key.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// RedisStore implements NoteStore on a single shared Redis client.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ NoteStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection. addr is
// either "host:port" or a redis:// URL.
func NewRedisStore(ctx context.Context, addr, keyPrefix string) (*RedisStore, error) {
	opts, err := parseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis address: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, keyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func parseAddr(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	if addr == "" {
		return nil, errors.New("empty address")
	}
	return &redis.Options{Addr: addr}, nil
}

// Key returns the hash key holding a chat's notes.
func (s *RedisStore) Key(chatID int64) string {
	return s.keyPrefix + strconv.FormatInt(chatID, 10)
}

// SetNote stores or replaces a user's note.
func (s *RedisStore) SetNote(ctx context.Context, chatID int64, username, text string) error {
	key := s.Key(chatID)
	err := s.client.HSet(ctx, key, username, text).Err()
	metrics.RecordStoreOp("hset", err)
	if err != nil {
		return &StoreError{Query: fmt.Sprintf("HSET %s %s", key, username), Err: err}
	}
	return nil
}

// DeleteNote removes a user's note. Deleting a missing note is not an error.
func (s *RedisStore) DeleteNote(ctx context.Context, chatID int64, username string) error {
	key := s.Key(chatID)
	err := s.client.HDel(ctx, key, username).Err()
	metrics.RecordStoreOp("hdel", err)
	if err != nil {
		return &StoreError{Query: fmt.Sprintf("HDEL %s %s", key, username), Err: err}
	}
	return nil
}

// GetNote reads one note.
func (s *RedisStore) GetNote(ctx context.Context, chatID int64, username string) (string, bool, error) {
	key := s.Key(chatID)
	text, err := s.client.HGet(ctx, key, username).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordStoreOp("hget", nil)
		return "", false, nil
	}
	metrics.RecordStoreOp("hget", err)
	if err != nil {
		return "", false, &StoreError{Query: fmt.Sprintf("HGET %s %s", key, username), Err: err}
	}
	return text, true, nil
}

// GetAllNotes reads every note in a chat. A chat without notes yields an
// empty, non-nil map.
func (s *RedisStore) GetAllNotes(ctx context.Context, chatID int64) (map[string]string, error) {
	key := s.Key(chatID)
	notes, err := s.client.HGetAll(ctx, key).Result()
	metrics.RecordStoreOp("hgetall", err)
	if err != nil {
		return nil, &StoreError{Query: "HGETALL " + key, Err: err}
	}
	if notes == nil {
		notes = map[string]string{}
	}
	return notes, nil
}

// Ping checks the connection, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
