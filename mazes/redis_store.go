package mazes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every record as a json field of one hash, keyed by name.
type RedisStore struct {
	client *redis.Client
	locker *redsync.Redsync
	key    string
}

// ConnectRedis dials addr and checks the server answers.
func ConnectRedis(ctx context.Context, addr, password, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mazes: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, key), nil
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{
		client: client,
		locker: redsync.New(goredis.NewPool(client)),
		key:    key,
	}
}

// Save holds a per-name lock across the read and write so concurrent saves
// of one name agree on its id and creation time.
func (rs *RedisStore) Save(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	mutex := rs.locker.NewMutex(rs.key + ":" + rec.Name + ":save_lock")
	if err = mutex.LockContext(ctx); err != nil {
		return rec, fmt.Errorf("mazes: redis lock %s: %w", rec.Name, err)
	}
	defer func() {
		_, _ = mutex.Unlock()
	}()

	prev, err := rs.get(ctx, rec.Name)
	switch {
	case err == nil:
		rec.ID, rec.CreatedAt = prev.ID, prev.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return rec, err
	}

	data, err := json.Marshal(toStored(rec))
	if err != nil {
		return rec, fmt.Errorf("mazes: redis save %s: %w", rec.Name, err)
	}
	if err = rs.client.HSet(ctx, rs.key, rec.Name, data).Err(); err != nil {
		return rec, fmt.Errorf("mazes: redis save %s: %w", rec.Name, err)
	}
	return rec, nil
}

func (rs *RedisStore) Load(ctx context.Context, name string) (Record, error) {
	doc, err := rs.get(ctx, name)
	if err != nil {
		return Record{}, err
	}
	return doc.record()
}

func (rs *RedisStore) List(ctx context.Context) ([]Record, error) {
	vals, err := rs.client.HVals(ctx, rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("mazes: redis list: %w", err)
	}

	recs := make([]Record, 0, len(vals))
	for _, val := range vals {
		var doc stored
		if err = json.Unmarshal([]byte(val), &doc); err != nil {
			return nil, fmt.Errorf("mazes: redis list: %w", err)
		}
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].Name < recs[j].Name
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, nil
}

func (rs *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := rs.client.HDel(ctx, rs.key, name).Result()
	if err != nil {
		return fmt.Errorf("mazes: redis delete %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) get(ctx context.Context, name string) (stored, error) {
	var doc stored
	val, err := rs.client.HGet(ctx, rs.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return doc, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return doc, fmt.Errorf("mazes: redis load %s: %w", name, err)
	}
	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, fmt.Errorf("mazes: redis load %s: %w", name, err)
	}
	return doc, nil
}
