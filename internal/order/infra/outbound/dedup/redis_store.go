package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// RedisStore guarda cada marca como un string JSON con expiración nativa,
// así que un registro expirado desaparece solo.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, table string) *RedisStore {
	return &RedisStore{client: client, prefix: table + ":"}
}

func (s *RedisStore) key(orderID string) string {
	return s.prefix + orderID
}

func (s *RedisStore) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DedupRecord{}, false, nil
		}
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	var item domain.DedupItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	rec, err := item.Record()
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	return rec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, rec domain.DedupRecord) error {
	data, err := json.Marshal(rec.Item())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if err := s.client.Set(ctx, s.key(rec.OrderID), data, ttlOf(rec)).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	data, err := json.Marshal(rec.Item())
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	ok, err := s.client.SetNX(ctx, s.key(rec.OrderID), data, ttlOf(rec)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return ok, nil
}

func ttlOf(rec domain.DedupRecord) time.Duration {
	return rec.ExpiresAt.Sub(rec.ProcessedAt)
}

var _ domain.DedupStore = (*RedisStore)(nil)
