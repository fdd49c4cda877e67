package tripmesh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/config"
)

const sessionKeyPrefix = "tripmesh:sess:"

// RedisSessionStore persists sessions in Redis.
// Data model:
//   - sessionKeyPrefix+"session:"+id => JSON(Session) with TTL
//   - sessionKeyPrefix+"idx"         => sorted set of ids scored by recency
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(cfg config.SessionConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

// NewRedisSessionStoreWithClient wraps an existing client, used in tests.
func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) idxKey() string { return sessionKeyPrefix + "idx" }

func (s *RedisSessionStore) sessKey(id string) string { return sessionKeyPrefix + "session:" + id }

func (s *RedisSessionStore) Create(ctx context.Context) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Turns: []ChatTurn{}}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisSessionStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessKey(sess.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.idxKey(), redis.Z{Score: float64(time.Now().Unix()), Member: sess.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, bool) {
	data, err := s.client.Get(ctx, s.sessKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("session store: read %s failed: %v", id, err)
		}
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.Warnf("session store: corrupt session %s: %v", id, err)
		return nil, false
	}
	return &sess, true
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) bool {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.sessKey(id))
	pipe.ZRem(ctx, s.idxKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false
	}
	return del.Val() > 0
}

func (s *RedisSessionStore) ListRange(ctx context.Context, offset, limit int) []*Session {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []*Session{}
	}
	ids, err := s.client.ZRevRange(ctx, s.idxKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		logger.Warnf("session store: index read failed: %v", err)
		return []*Session{}
	}
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.Get(ctx, id); ok {
			out = append(out, sess)
		}
	}
	return out
}

func (s *RedisSessionStore) AddTurns(ctx context.Context, id string, turns ...ChatTurn) bool {
	sess, ok := s.Get(ctx, id)
	if !ok {
		return false
	}
	sess.Turns = append(sess.Turns, turns...)
	if err := s.save(ctx, sess); err != nil {
		logger.Warnf("session store: update %s failed: %v", id, err)
		return false
	}
	return true
}

func (s *RedisSessionStore) Clean(ctx context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	// drop everything below the newest max entries in the index
	ids, err := s.client.ZRevRange(ctx, s.idxKey(), int64(max), -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.Delete(ctx, id)
	}
	return nil
}

// NewSessionStore builds the configured session store; nil config falls back
// to the in-memory store.
func NewSessionStore(cfg *config.SessionConfig) (SessionStore, error) {
	if cfg == nil || cfg.Store == "" || cfg.Store == "memory" {
		return NewMemSessionStore(), nil
	}
	return NewRedisSessionStore(*cfg)
}
