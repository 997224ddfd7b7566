//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account/postgres"
	"github.com/MrEthical07/authcore/kvstore"
)

func TestPostgresRepositoryWithEngine(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrations are idempotent.
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	engine, err := authcore.New().
		WithConfig(testConfig()).
		WithStore(kvstore.NewMemory()).
		WithAccountRepository(postgres.NewRepository(db)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	username := fmt.Sprintf("it%d", time.Now().UnixNano())
	reg, err := engine.Register(ctx, authcore.RegisterRequest{Email: email, Username: username, Password: alicePassword})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = engine.Register(ctx, authcore.RegisterRequest{Email: email, Username: username + "x", Password: alicePassword})
	if !errors.Is(err, authcore.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, authcore.LoginRequest{Email: email, Password: "Wrong-horse-42!"})
	}
	login, err := engine.Login(ctx, authcore.LoginRequest{Email: email, Password: alicePassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Account.ID != reg.Account.ID || login.Account.FailedAttempts != 0 {
		t.Fatalf("unexpected account after login: %+v", login.Account)
	}

	key, err := engine.GenerateAPIKey(ctx, reg.Account.ID, "pg")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keys, err := engine.ListAPIKeys(ctx, reg.Account.ID)
	if err != nil || len(keys) != 1 || keys[0].ID != key.KeyID {
		t.Fatalf("list keys: %+v err=%v", keys, err)
	}
	if _, err := engine.AuthenticateAPIKey(ctx, key.Key); err != nil {
		t.Fatalf("authenticate key: %v", err)
	}
}
