package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ttlRoom         = 6 * time.Hour
	defaultKeyspace = "chess"
)

// RedisDirectory stores one JSON summary per room under <ns>:room:<id> and
// indexes live ids in the <ns>:rooms set.
type RedisDirectory struct {
	rdb *redis.Client
	ns  string
}

func NewRedisDirectory(rdb *redis.Client, namespace string) *RedisDirectory {
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		ns = defaultKeyspace
	}
	return &RedisDirectory{rdb: rdb, ns: ns}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for room directory")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisDirectory) keyRoom(id string) string { return s.ns + ":room:" + strings.TrimSpace(id) }
func (s *RedisDirectory) keyIndex() string         { return s.ns + ":rooms" }

func (s *RedisDirectory) Publish(ctx context.Context, info RoomInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyRoom(info.ID), raw, ttlRoom)
	pipe.SAdd(ctx, s.keyIndex(), info.ID)
	pipe.Expire(ctx, s.keyIndex(), ttlRoom)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisDirectory) Remove(ctx context.Context, roomID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyRoom(roomID))
	pipe.SRem(ctx, s.keyIndex(), roomID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns every indexed room. Ids whose summary expired are pruned
// from the index.
func (s *RedisDirectory) List(ctx context.Context) ([]RoomInfo, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RoomInfo, 0, len(ids))
	for _, id := range ids {
		raw, err := s.rdb.Get(ctx, s.keyRoom(id)).Bytes()
		if err == redis.Nil {
			_ = s.rdb.SRem(ctx, s.keyIndex(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		var info RoomInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("decode room %s: %w", id, err)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
