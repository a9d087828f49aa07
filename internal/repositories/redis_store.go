package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	containerKeyPrefix = "rstore:container:"
	recordKeyFormat    = "rstore:%s:doc:%s"
	recordIDKeyFormat  = "rstore:%s:id:%s"
)

// RedisRecordStore keeps each document as one Redis key under a lazily
// created container. Container creation uses SETNX so the first writer
// wins and concurrent creators converge on the same id.
type RedisRecordStore struct {
	client    *redis.Client
	container string
	ids       *IDCache
	ensure    singleflight.Group
}

func NewRedisRecordStore(client *redis.Client, container string, ids *IDCache) *RedisRecordStore {
	return &RedisRecordStore{client: client, container: container, ids: ids}
}

// ensureContainer resolves the container id, creating it on first use.
// Memoized through the id cache; concurrent callers share one lookup.
func (s *RedisRecordStore) ensureContainer(ctx context.Context) (string, error) {
	cacheKey := "container:" + s.container
	if id, ok := s.ids.Get(cacheKey); ok {
		return id, nil
	}

	v, err, _ := s.ensure.Do(cacheKey, func() (interface{}, error) {
		key := containerKeyPrefix + s.container
		// SETNX loses to an existing id, so the oldest creation wins.
		if err := s.client.SetNX(ctx, key, uuid.New().String(), 0).Err(); err != nil {
			return nil, fmt.Errorf("failed to create container: %w", err)
		}
		id, err := s.client.Get(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve container id: %w", err)
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}

	id := v.(string)
	s.ids.Set(cacheKey, id)
	return id, nil
}

func (s *RedisRecordStore) Find(ctx context.Context, name string) (string, error) {
	if id, ok := s.ids.Get(name); ok {
		return id, nil
	}

	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return "", err
	}

	id, err := s.client.Get(ctx, fmt.Sprintf(recordIDKeyFormat, cid, name)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find record: %w", err)
	}

	s.ids.Set(name, id)
	return id, nil
}

func (s *RedisRecordStore) Read(ctx context.Context, name string) ([]byte, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(recordKeyFormat, cid, name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return data, nil
}

func (s *RedisRecordStore) Write(ctx context.Context, name string, doc []byte) (string, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return "", err
	}

	// Record ids are stable across overwrites: SETNX keeps the first one.
	idKey := fmt.Sprintf(recordIDKeyFormat, cid, name)
	if err := s.client.SetNX(ctx, idKey, uuid.New().String(), 0).Err(); err != nil {
		return "", fmt.Errorf("failed to assign record id: %w", err)
	}
	id, err := s.client.Get(ctx, idKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to resolve record id: %w", err)
	}

	err = s.client.Set(ctx, fmt.Sprintf(recordKeyFormat, cid, name), doc, 0).Err()
	if err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}

	s.ids.Set(name, id)
	return id, nil
}

func (s *RedisRecordStore) Delete(ctx context.Context, name string) (bool, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return false, err
	}

	removed, err := s.client.Del(ctx, fmt.Sprintf(recordKeyFormat, cid, name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	if err := s.client.Del(ctx, fmt.Sprintf(recordIDKeyFormat, cid, name)).Err(); err != nil {
		return false, fmt.Errorf("failed to delete record id: %w", err)
	}

	s.ids.Forget(name)
	return removed > 0, nil
}

func (s *RedisRecordStore) List(ctx context.Context) ([]RecordInfo, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf(recordKeyFormat, cid, "")
	var records []RecordInfo
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		records = append(records, RecordInfo{Name: strings.TrimPrefix(iter.Val(), prefix)})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}
