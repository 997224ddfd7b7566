package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultUpdateRetries = 8

// INCR + PEXPIRE on the first hit; a key that lost its TTL gets one again so a
// counter can never become permanent.
const incrWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

var incrWindowLua = redis.NewScript(incrWindowScript)

// RedisConfig configures a [Redis] store.
type RedisConfig struct {
	// Prefix is prepended to every key, e.g. "authcore:".
	Prefix string
	// UpdateRetries bounds optimistic WATCH/MULTI retries in Update.
	UpdateRetries int
}

// Redis is a [Store] backed by a go-redis client. Expiry is native, so Sweep is
// a no-op.
type Redis struct {
	client redis.UniversalClient
	config RedisConfig
}

// NewRedis wraps client. The caller keeps ownership of client; Close does not
// close it.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	if cfg.UpdateRetries <= 0 {
		cfg.UpdateRetries = defaultUpdateRetries
	}
	return &Redis{client: client, config: cfg}
}

func (r *Redis) key(k string) string {
	return r.config.Prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (Counter, error) {
	if window < time.Millisecond {
		window = time.Millisecond
	}
	res, err := incrWindowLua.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("%w: unexpected counter reply", ErrUnavailable)
	}
	return Counter{Count: res[0], TTL: time.Duration(res[1]) * time.Millisecond}, nil
}

// Update runs fn inside WATCH/MULTI and retries when another client modified the
// key in between.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := r.key(key)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		exists := true
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			exists = false
			current = nil
		}

		next, ttl, err := fn(current, exists)
		if err != nil {
			return err
		}
		if ttl < 0 {
			ttl = 0
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, k)
				return nil
			}
			pipe.Set(ctx, k, next, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < r.config.UpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, k)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		var redisErr redis.Error
		if errors.As(err, &redisErr) || isTransportError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	return ErrConflict
}

func (r *Redis) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return nil
}

func isTransportError(err error) bool {
	return errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
