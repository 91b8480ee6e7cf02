package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 5

// RedisStore keeps each session as a JSON value under "session:<call id>".
// Every write refreshes the TTL, so abandoned calls expire on their own.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func sessionKey(callID string) string { return "session:" + callID }

func (s *RedisStore) GetOrCreate(ctx context.Context, callID, tenantID string) (Session, error) {
	if err := validateCallID(callID); err != nil {
		return Session{}, err
	}
	fresh := newSession(callID, tenantID, s.now())
	raw, err := json.Marshal(fresh)
	if err != nil {
		return Session{}, err
	}

	created, err := s.rdb.SetNX(ctx, sessionKey(callID), raw, s.ttl).Result()
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	if created {
		return fresh, nil
	}

	sess, err := s.Get(ctx, callID)
	if errors.Is(err, ErrNotFound) {
		// Expired between SETNX and GET; start over.
		return fresh, s.rdb.Set(ctx, sessionKey(callID), raw, s.ttl).Err()
	}
	return sess, err
}

func (s *RedisStore) Get(ctx context.Context, callID string) (Session, error) {
	return getSession(ctx, s.rdb, callID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getSession(ctx context.Context, c stringGetter, callID string) (Session, error) {
	raw, err := c.Get(ctx, sessionKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return sess, nil
}

// Update uses WATCH/MULTI so a concurrent writer forces a retry instead of
// a lost update.
func (s *RedisStore) Update(ctx context.Context, callID string, p Patch) (Session, error) {
	key := sessionKey(callID)
	var out Session

	txf := func(tx *redis.Tx) error {
		sess, err := getSession(ctx, tx, callID)
		if err != nil {
			return err
		}
		out = sess.Apply(p, s.now())
		raw, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Session{}, err
	}
	return Session{}, ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	return s.rdb.Del(ctx, sessionKey(callID)).Err()
}
