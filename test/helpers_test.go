//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	aliceEmail    = "alice@example.com"
	alicePassword = "Correct-horse-42!"
)

// redisMode describes which Redis backend a suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns miniredis plus a real standalone Redis when REDIS_ADDR is
// set, and a cluster when REDIS_CLUSTER_ADDRS is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			t.Helper()
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				})
				return rdb
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		})
	}
	return modes
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func testConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdef-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdef-012345678")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	// Unique prefix per engine so a shared Redis does not leak state.
	cfg.Store.KeyPrefix = "authcore-it:" + time.Now().Format("150405.000000000") + ":"
	return cfg
}

func newRedisEngine(t *testing.T, rdb redis.UniversalClient, accounts account.Repository, mutate func(*authcore.Config)) *authcore.Engine {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := authcore.New().WithConfig(cfg).WithRedis(rdb)
	if accounts != nil {
		b.WithAccountRepository(accounts)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func registerAlice(t *testing.T, engine *authcore.Engine) *authcore.RegisterResult {
	t.Helper()
	res, err := engine.Register(context.Background(), authcore.RegisterRequest{
		Email:    aliceEmail,
		Username: "alice",
		Password: alicePassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}
