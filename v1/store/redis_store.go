package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

const defaultRedisKeyPrefix = "verlock:"

// redisLock is the JSON document stored per version key.
type redisLock struct {
	ID          string    `json:"id"`
	VersionID   string    `json:"version"`
	HolderID    string    `json:"holder_id"`
	HolderName  string    `json:"holder_name,omitempty"`
	HolderEmail string    `json:"holder_email,omitempty"`
	Created     time.Time `json:"created"`
}

// Redis implements Store using a Redis backend. SetNX provides the atomic
// insert-if-absent required for concurrent Acquire correctness.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisKeyPrefix sets the key prefix for lock documents.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		s.prefix = prefix
	}
}

// NewRedis returns a new Redis store using the provided client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{client: client, prefix: defaultRedisKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) key(versionID string) string {
	return s.prefix + versionID
}

// Get implements Store.Get.
func (s *Redis) Get(ctx context.Context, versionID string) (*Lock, error) {
	data, err := s.client.Get(ctx, s.key(versionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc redisLock
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.lock(), nil
}

// Create implements Store.Create.
func (s *Redis) Create(ctx context.Context, versionID string, holder version.User) (*Lock, error) {
	doc := redisLock{
		ID:          uuid.NewString(),
		VersionID:   versionID,
		HolderID:    holder.ID,
		HolderName:  holder.Name,
		HolderEmail: holder.Email,
		Created:     time.Now(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, s.key(versionID), data, 0).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, verrors.ErrLockExists
	}
	return doc.lock(), nil
}

// Delete implements Store.Delete.
func (s *Redis) Delete(ctx context.Context, versionID string) (int64, error) {
	return s.client.Del(ctx, s.key(versionID)).Result()
}

func (d *redisLock) lock() *Lock {
	return &Lock{
		ID:        d.ID,
		VersionID: d.VersionID,
		CreatedBy: version.User{ID: d.HolderID, Name: d.HolderName, Email: d.HolderEmail},
		Created:   d.Created,
	}
}
