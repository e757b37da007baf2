package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the catalog keys
const DefaultRedisPrefix = "shoefinder:"

// RedisStore keeps each item as a JSON value plus a set of all item ids
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection with PING
func NewRedisStore(ctx context.Context, addr string, db int, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) itemKey(id string) string {
	return r.prefix + "item:" + id
}

func (r *RedisStore) idsKey() string {
	return r.prefix + "items"
}

// Put inserts or replaces an item
func (r *RedisStore) Put(ctx context.Context, item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	stored := *item
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}
	val, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", item.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.itemKey(item.ID), val, 0)
		pipe.SAdd(ctx, r.idsKey(), item.ID)
		return nil
	})
	return err
}

// Get returns an item by id
func (r *RedisStore) Get(ctx context.Context, id string) (*Item, error) {
	val, err := r.client.Get(ctx, r.itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var item Item
	if err := json.Unmarshal(val, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return &item, nil
}

// Delete removes an item by id
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.itemKey(id))
		pipe.SRem(ctx, r.idsKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all items ordered by id
func (r *RedisStore) List(ctx context.Context) ([]Item, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Item{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(ids))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// id left in the set without a value
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Count returns the number of stored items
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.idsKey()).Result()
	return int(n), err
}

// Clear removes all items under the prefix
func (r *RedisStore) Clear(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.itemKey(id))
	}
	keys = append(keys, r.idsKey())
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// CatalogFeatures returns the feature vectors of all items ordered by id
func (r *RedisStore) CatalogFeatures(ctx context.Context) ([]ranking.FeatureVector, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return featureVectors(items), nil
}

// CatalogDominantColors returns the dominant colors of all items
func (r *RedisStore) CatalogDominantColors(ctx context.Context) (map[string]ranking.DominantColorSet, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return dominantColorSets(items), nil
}
