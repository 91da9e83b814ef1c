package room

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions are logically ephemeral; the TTL is a backstop against rooms
// whose cleanup broadcast was lost.
const sessionTTL = 24 * time.Hour

// RedisStore keeps sessions in Redis so several server processes can share
// one session registry. Values are JSON under room:<id>, with a set index
// for the disconnect sweep.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func keyRoom(roomID string) string { return "room:" + strings.TrimSpace(roomID) }

const keyIndex = "room:index"

func (r *RedisStore) Get(ctx context.Context, roomID string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, keyRoom(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, keyRoom(s.RoomID), raw, sessionTTL).Err(); err != nil {
		return err
	}
	if err := r.rdb.SAdd(ctx, keyIndex, s.RoomID).Err(); err != nil {
		return err
	}
	return r.rdb.Expire(ctx, keyIndex, sessionTTL).Err()
}

func (r *RedisStore) Delete(ctx context.Context, roomID string) error {
	if err := r.rdb.Del(ctx, keyRoom(roomID)).Err(); err != nil {
		return err
	}
	return r.rdb.SRem(ctx, keyIndex, roomID).Err()
}

func (r *RedisStore) List(ctx context.Context) ([]*Session, error) {
	ids, err := r.rdb.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			// Expired behind the index; drop the stale entry.
			_ = r.rdb.SRem(ctx, keyIndex, id).Err()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
