package redisstore

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "narrate:session:"

var _ store.Store = (*Store)(nil)

// Store keeps the session entries in one redis hash per namespace. Save runs
// DEL and HSET in a MULTI block so readers see either the old or the new group.
type Store struct {
	rdb   redis.UniversalClient
	key   string
	owned bool
}

// New wraps an existing client. The caller keeps ownership of rdb.
func New(rdb redis.UniversalClient, namespace string) *Store {
	return &Store{rdb: rdb, key: keyPrefix + namespace}
}

// Dial connects to addr and pings it. Close releases the connection.
func Dial(ctx context.Context, addr, password string, db int, namespace string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("[redisstore Dial] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	s := New(rdb, namespace)
	s.owned = true
	return s, nil
}

func (s *Store) Load(ctx context.Context) (store.Entries, error) {
	values, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("[redisstore Load] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	entries := make(store.Entries, len(values))
	for k, v := range values {
		entries[k] = v
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, entries store.Entries) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(entries) > 0 {
			fields := make(map[string]any, len(entries))
			for k, v := range entries {
				fields[k] = v
			}
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore Save] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}
