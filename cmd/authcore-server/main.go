// Command authcore-server serves the authcore HTTP API.
//
// Engine settings come from AUTH_* variables (see authcore.LoadConfigFromEnv).
// Server settings:
//
//	HTTP_ADDR          listen address, default :8080
//	REDIS_ADDR         Redis for sessions and rate limits; in-memory when empty
//	DATABASE_URL       Postgres for accounts; in-memory when empty
//	LOG_LEVEL          debug, info, warn or error
//	LOG_FORMAT         json or text
//	KAFKA_BROKERS      comma-separated brokers for the audit stream
//	KAFKA_AUDIT_TOPIC  audit topic, default authcore.audit
//	TRUST_PROXY        honour X-Forwarded-For
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account/postgres"
	"github.com/MrEthical07/authcore/audit/kafkasink"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

type serverConfig struct {
	Addr         string
	RedisAddr    string
	DatabaseURL  string
	LogLevel     string
	LogFormat    string
	KafkaBrokers []string
	KafkaTopic   string
	TrustProxy   bool
}

func loadServerConfig(getenv func(string) string) (serverConfig, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	cfg := serverConfig{
		Addr:        get("HTTP_ADDR", ":8080"),
		RedisAddr:   get("REDIS_ADDR", ""),
		DatabaseURL: get("DATABASE_URL", ""),
		LogLevel:    get("LOG_LEVEL", "info"),
		LogFormat:   get("LOG_FORMAT", "json"),
		KafkaTopic:  get("KAFKA_AUDIT_TOPIC", "authcore.audit"),
	}
	for _, b := range strings.Split(getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	if v := getenv("TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return serverConfig{}, fmt.Errorf("TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = trust
	}
	return cfg, nil
}

func main() {
	devRedis := flag.Bool("dev-redis", false, "run an embedded miniredis when REDIS_ADDR is empty")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *devRedis); err != nil {
		fmt.Fprintf(os.Stderr, "authcore-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, devRedis bool) error {
	srvCfg, err := loadServerConfig(os.Getenv)
	if err != nil {
		return err
	}
	logger := logging.New(srvCfg.LogLevel, srvCfg.LogFormat, os.Stdout)

	authCfg, err := authcore.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	builder := authcore.New().WithConfig(authCfg).WithLogger(logger)

	// -------- REDIS --------
	redisAddr := srvCfg.RedisAddr
	if redisAddr == "" && devRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("miniredis: %w", err)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		logger.Warn("using embedded miniredis; state is lost on exit", "addr", redisAddr)
	}
	if redisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{redisAddr}})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder.WithRedis(client)
	} else {
		logger.Warn("REDIS_ADDR not set; sessions and rate limits are in-memory")
	}

	// -------- POSTGRES --------
	var db *sql.DB
	if srvCfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, srvCfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		builder.WithAccountRepository(postgres.NewRepository(db))
	} else {
		logger.Warn("DATABASE_URL not set; accounts are in-memory")
	}

	// -------- AUDIT --------
	sinks := authcore.MultiSink{authcore.NewSlogSink(logger)}
	if len(srvCfg.KafkaBrokers) > 0 {
		ks := kafkasink.New(srvCfg.KafkaBrokers, srvCfg.KafkaTopic, kafkasink.WithLogger(logger))
		defer func() {
			if err := ks.Close(); err != nil {
				logger.Error("kafka sink close", "error", err)
			}
		}()
		sinks = append(sinks, ks)
	}
	builder.WithAuditSink(sinks)

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		"signing", report.SigningAlgorithm,
		"access_ttl", report.AccessTTL,
		"lockout", report.LockoutActive,
		"rate_limiting", report.RateLimitingActive,
		"audit", report.AuditEnabled,
	)
	for _, w := range report.Warnings {
		logger.Warn("weak security setting", "detail", w)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	api := httpapi.New(engine, httpapi.Options{
		Logger:     logger,
		TrustProxy: srvCfg.TrustProxy,
		Registry:   registry,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("authcore-server listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return engine.RunJanitor(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
