// Command authcore-admin bootstraps an authcore deployment.
//
//	authcore-admin migrate
//	authcore-admin create-account -email admin@example.com -username admin -role admin
//	authcore-admin hash-password
//
// DATABASE_URL selects the Postgres database. Password hashing and strength
// rules follow the AUTH_* configuration the server uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/account/postgres"
	"github.com/MrEthical07/authcore/internal/ids"
	"github.com/MrEthical07/authcore/password"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

var errUsage = errors.New("usage: authcore-admin <migrate|create-account|hash-password> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "authcore-admin: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := authcore.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch args[0] {
	case "migrate":
		db, err := postgres.Open(ctx, os.Getenv("DATABASE_URL"))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "create-account":
		fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
		fs.SetOutput(out)
		email := fs.String("email", "", "account email")
		username := fs.String("username", "", "account username")
		role := fs.String("role", "admin", "account role")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}

		db, err := postgres.Open(ctx, os.Getenv("DATABASE_URL"))
		if err != nil {
			return err
		}
		defer db.Close()

		acct, err := createAccount(ctx, postgres.NewRepository(db), cfg, out, *email, *username, *role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created account %s (%s) with role %s\n", acct.ID, acct.Email, acct.Role)
		return nil

	case "hash-password":
		hash, err := hashPassword(cfg, out)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hash)
		return nil
	}
	return errUsage
}

type accountCreator interface {
	Create(ctx context.Context, acct *account.Account) error
}

func createAccount(
	ctx context.Context,
	repo accountCreator,
	cfg authcore.Config,
	out io.Writer,
	email, username, role string,
) (*account.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, errors.New("-email and -username are required")
	}
	if _, ok := cfg.Roles[role]; !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := hashPassword(cfg, out)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewGenerator(time.Now).New()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acct := &account.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			return nil, fmt.Errorf("account %s already exists", email)
		}
		return nil, err
	}
	return acct, nil
}

// hashPassword prompts twice, checks the strength policy and returns the
// Argon2id PHC string.
func hashPassword(cfg authcore.Config, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	first, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}

	policy := password.NewPolicy(password.PolicyConfig{
		MinLength:     cfg.Password.MinLength,
		MaxBytes:      cfg.Password.MaxBytes,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireSymbol: cfg.Password.RequireSymbol,
	})
	if res := policy.Validate(string(first)); !res.Valid {
		msgs := make([]string, 0, len(res.Violations))
		for _, v := range res.Violations {
			msgs = append(msgs, v.Message)
		}
		return "", fmt.Errorf("weak password: %s", strings.Join(msgs, "; "))
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return "", err
	}
	return hasher.Hash(string(first))
}
