package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marmos91/httpgate/pkg/auth"
)

// Hash fields of a stored session.
const (
	fieldID        = "id"
	fieldPrincipal = "principal"
	fieldCreated   = "created"
	fieldLastSeen  = "last_seen"
)

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps each session in a hash whose key is derived from the
// token digest, so the bearer secret never reaches Redis. Inactivity expiry
// is delegated to key TTLs.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	cl := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStoreWithClient(cl, opts.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(cl redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "httpgate:session:"
	}
	return &RedisStore{client: cl, keyPrefix: keyPrefix}
}

// ExpiresNatively implements NativeExpiry.
func (r *RedisStore) ExpiresNatively() bool { return true }

func (r *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.keyPrefix + hex.EncodeToString(sum[:])
}

func (r *RedisStore) Put(ctx context.Context, s *Session, ttl time.Duration) error {
	principal, err := json.Marshal(s.Principal)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}

	key := r.key(s.Token)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldID, s.ID,
			fieldPrincipal, principal,
			fieldCreated, s.CreatedAt.UnixNano(),
			fieldLastSeen, s.LastSeenAt.UnixNano(),
		)
		if ttl > 0 {
			p.PExpire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		return nil, err
	}
	return decodeSession(token, fields)
}

// touchScript moves last_seen forward and refreshes the TTL in one step so
// a concurrent expiry cannot resurrect a deleted key.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local prev = tonumber(redis.call('HGET', KEYS[1], 'last_seen'))
if prev == nil or prev < tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], 'last_seen', ARGV[1])
end
if tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

func (r *RedisStore) Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (*Session, error) {
	key := r.key(token)
	ok, err := touchScript.Run(ctx, r.client, []string{key}, now.UnixNano(), ttl.Milliseconds()).Int()
	if err != nil {
		return nil, err
	}
	if ok == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, token)
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

var expireScript = redis.NewScript(`
local last = tonumber(redis.call('HGET', KEYS[1], 'last_seen'))
if last == nil or last >= tonumber(ARGV[1]) then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

func (r *RedisStore) Expire(ctx context.Context, token string, cutoff time.Time) (bool, error) {
	n, err := expireScript.Run(ctx, r.client, []string{r.key(token)}, cutoff.UnixNano()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteIdle is a no-op; key TTLs already remove idle sessions.
func (r *RedisStore) DeleteIdle(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := r.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.scan(ctx, func(keys []string) error {
		return r.client.Del(ctx, keys...).Err()
	})
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func decodeSession(token string, fields map[string]string) (*Session, error) {
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	var p auth.Principal
	if err := json.Unmarshal([]byte(fields[fieldPrincipal]), &p); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	created, err1 := strconv.ParseInt(fields[fieldCreated], 10, 64)
	lastSeen, err2 := strconv.ParseInt(fields[fieldLastSeen], 10, 64)
	if err := errors.Join(err1, err2); err != nil {
		return nil, fmt.Errorf("decode timestamps: %w", err)
	}

	return &Session{
		ID:         fields[fieldID],
		Token:      token,
		Principal:  p,
		CreatedAt:  time.Unix(0, created),
		LastSeenAt: time.Unix(0, lastSeen),
	}, nil
}
