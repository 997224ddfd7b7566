package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const accountColumns = `id, email, username, password_hash, role, permissions,
		mfa_enabled, mfa_secret, failed_attempts, locked_until, last_login_at,
		created_at, updated_at`

// Repository is the PostgreSQL account store.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ account.Repository = (*Repository)(nil)

// NewRepository binds a repository to db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) Create(ctx context.Context, acct *account.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		acct.ID, strings.ToLower(acct.Email), acct.Username, acct.PasswordHash, acct.Role,
		joinPermissions(acct.Permissions), acct.MFAEnabled, acct.MFASecret,
		acct.FailedAttempts, nullTime(acct.LockedUntil), nullTime(acct.LastLoginAt),
		acct.CreatedAt.UTC(), acct.UpdatedAt.UTC())
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return account.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}

	for _, k := range acct.APIKeys {
		if err := insertAPIKey(ctx, tx, acct.ID, k); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
}

func (r *Repository) GetByAPIKeyHash(ctx context.Context, hash string) (*account.Account, account.APIKey, error) {
	var accountID, keyID string
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, key_id FROM api_keys WHERE key_hash = $1`, hash).Scan(&accountID, &keyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.APIKey{}, account.ErrNotFound
		}
		return nil, account.APIKey{}, fmt.Errorf("db error: %w", err)
	}

	acct, err := r.GetByID(ctx, accountID)
	if err != nil {
		return nil, account.APIKey{}, err
	}
	key, ok := acct.FindAPIKey(keyID)
	if !ok {
		return nil, account.APIKey{}, account.ErrNotFound
	}
	return acct, key, nil
}

// UpdateLoginState locks the account row for the duration of fn.
func (r *Repository) UpdateLoginState(ctx context.Context, id string, fn account.LoginStateFunc) (account.LoginState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return account.LoginState{}, fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		state       account.LoginState
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT failed_attempts, locked_until, last_login_at FROM accounts WHERE id = $1 FOR UPDATE`,
		id).Scan(&state.FailedAttempts, &lockedUntil, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.LoginState{}, account.ErrNotFound
		}
		return account.LoginState{}, fmt.Errorf("db error: %w", err)
	}
	state.LockedUntil = fromNullTime(lockedUntil)
	state.LastLoginAt = fromNullTime(lastLogin)

	if err := fn(&state); err != nil {
		return account.LoginState{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET failed_attempts = $2, locked_until = $3, last_login_at = $4, updated_at = $5
		 WHERE id = $1`,
		id, state.FailedAttempts, nullTime(state.LockedUntil), nullTime(state.LastLoginAt), r.now().UTC())
	if err != nil {
		return account.LoginState{}, fmt.Errorf("db error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return account.LoginState{}, fmt.Errorf("db error: %w", err)
	}
	return state, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execAccount(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, r.now().UTC())
}

func (r *Repository) UpdateMFA(ctx context.Context, id string, enabled bool, secret []byte) error {
	return r.execAccount(ctx,
		`UPDATE accounts SET mfa_enabled = $2, mfa_secret = $3, updated_at = $4 WHERE id = $1`,
		id, enabled, secret, r.now().UTC())
}

func (r *Repository) AddAPIKey(ctx context.Context, id string, key account.APIKey) error {
	return insertAPIKey(ctx, r.db, id, key)
}

func (r *Repository) DeleteAPIKey(ctx context.Context, id, keyID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE account_id = $1 AND key_id = $2`, id, keyID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrAPIKeyNotFound
	}
	return nil
}

func (r *Repository) TouchAPIKey(ctx context.Context, id, keyID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $3 WHERE account_id = $1 AND key_id = $2`,
		id, keyID, at.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrAPIKeyNotFound
	}
	return nil
}

func (r *Repository) execAccount(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (*account.Account, error) {
	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	keys, err := loadAPIKeys(ctx, r.db, acct.ID)
	if err != nil {
		return nil, err
	}
	acct.APIKeys = keys
	return acct, nil
}

func scanAccount(row *sql.Row) (*account.Account, error) {
	var (
		acct        account.Account
		perms       string
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err := row.Scan(&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash, &acct.Role, &perms,
		&acct.MFAEnabled, &acct.MFASecret, &acct.FailedAttempts, &lockedUntil, &lastLogin,
		&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acct.Permissions = splitPermissions(perms)
	acct.LockedUntil = fromNullTime(lockedUntil)
	acct.LastLoginAt = fromNullTime(lastLogin)
	return &acct, nil
}

func loadAPIKeys(ctx context.Context, q queryer, accountID string) ([]account.APIKey, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key_id, prefix, key_hash, name, created_at, last_used_at
		 FROM api_keys WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []account.APIKey
	for rows.Next() {
		var (
			k        account.APIKey
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.Prefix, &k.Hash, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		k.LastUsedAt = fromNullTime(lastUsed)
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAPIKey(ctx context.Context, db execer, accountID string, k account.APIKey) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO api_keys (account_id, key_id, prefix, key_hash, name, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		accountID, k.ID, k.Prefix, k.Hash, k.Name, k.CreatedAt.UTC(), nullTime(k.LastUsedAt))
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return account.ErrDuplicate
		case pgForeignKeyViolation:
			return account.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func joinPermissions(perms []string) string {
	return strings.Join(perms, ",")
}

func splitPermissions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
