package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/kvstore"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session has been idle longer than MaxIdle.
	ErrExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a stored blob cannot be decoded.
	ErrCorrupt = errors.New("session corrupt")
)

const defaultMaxIdle = 24 * time.Hour

// Config controls session lifetime.
type Config struct {
	// MaxIdle is the longest allowed gap between two validations.
	MaxIdle time.Duration
	// MaxPerAccount caps live sessions per account; the oldest is evicted. 0 means
	// unlimited.
	MaxPerAccount int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Store persists sessions in a [kvstore.Store].
//
// Keys: "sess:<id>" holds one session, "sessidx:<accountID>" holds the ids of an
// account's sessions. An idle session is kept for a further MaxIdle after it
// expires so validation can tell "expired" from "unknown"; after that the
// backend drops it.
type Store struct {
	kv     kvstore.Store
	config Config
	now    func() time.Time
}

// NewStore creates a session store over kv.
func NewStore(kv kvstore.Store, cfg Config) *Store {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = defaultMaxIdle
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, config: cfg, now: now}
}

// MaxIdle returns the effective idle timeout.
func (s *Store) MaxIdle() time.Duration {
	return s.config.MaxIdle
}

func sessionKey(id string) string {
	return "sess:" + id
}

func indexKey(accountID string) string {
	return "sessidx:" + accountID
}

func (s *Store) storageTTL() time.Duration {
	return 2 * s.config.MaxIdle
}

// Create opens a new session for accountID.
func (s *Store) Create(ctx context.Context, accountID string, device DeviceInfo) (*Session, error) {
	if accountID == "" {
		return nil, errors.New("session account id must not be empty")
	}
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	now := s.now().UTC()
	sess := &Session{
		ID:         sid.String(),
		AccountID:  accountID,
		CreatedAt:  now,
		LastAccess: now,
		Device:     device,
	}
	blob, err := Encode(sess)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, sessionKey(sess.ID), blob, s.storageTTL()); err != nil {
		return nil, wrapStoreErr(err)
	}

	evicted, err := s.addToIndex(ctx, accountID, sess.ID)
	if err != nil {
		_, _ = s.kv.Delete(ctx, sessionKey(sess.ID))
		return nil, err
	}
	for _, id := range evicted {
		if _, err := s.kv.Delete(ctx, sessionKey(id)); err != nil {
			return nil, wrapStoreErr(err)
		}
	}
	return sess, nil
}

// Validate checks that the session exists and is not idle-expired, then bumps
// LastAccess. LastAccess never moves backwards.
func (s *Store) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var (
		out      *Session
		expired  bool
		notFound bool
	)
	err := s.kv.Update(ctx, sessionKey(id), func(current []byte, exists bool) ([]byte, time.Duration, error) {
		if !exists {
			notFound = true
			return nil, 0, nil
		}
		sess, err := Decode(current)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		sess.ID = id

		now := s.now().UTC()
		if sess.IdleFor(now) > s.config.MaxIdle {
			expired = true
			out = sess
			return nil, 0, nil
		}
		if now.After(sess.LastAccess) {
			sess.LastAccess = now
		}
		next, err := Encode(sess)
		if err != nil {
			return nil, 0, err
		}
		out = sess
		return next, s.storageTTL(), nil
	})
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		return nil, wrapStoreErr(err)
	}
	if notFound {
		return nil, ErrNotFound
	}
	if expired {
		_ = s.removeFromIndex(ctx, out.AccountID, id)
		return nil, ErrExpired
	}
	return out, nil
}

// Get returns the session without touching LastAccess.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IdleFor(s.now()) > s.config.MaxIdle {
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *Store) load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	blob, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapStoreErr(err)
	}
	sess, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.ID = id
	return sess, nil
}

// Invalidate deletes one session. Deleting an unknown id is not an error; the
// boolean reports whether something was removed.
func (s *Store) Invalidate(ctx context.Context, id string) (bool, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if !errors.Is(err, ErrCorrupt) {
			return false, err
		}
	}
	removed, err := s.kv.Delete(ctx, sessionKey(id))
	if err != nil {
		return false, wrapStoreErr(err)
	}
	if sess != nil {
		if err := s.removeFromIndex(ctx, sess.AccountID, id); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// InvalidateAll deletes every session of accountID and returns how many were
// live.
func (s *Store) InvalidateAll(ctx context.Context, accountID string) (int, error) {
	ids, err := s.readIndex(ctx, accountID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		removed, err := s.kv.Delete(ctx, sessionKey(id))
		if err != nil {
			return n, wrapStoreErr(err)
		}
		if removed {
			n++
		}
	}
	if _, err := s.kv.Delete(ctx, indexKey(accountID)); err != nil {
		return n, wrapStoreErr(err)
	}
	return n, nil
}

// List returns the live sessions of accountID, oldest first.
func (s *Store) List(ctx context.Context, accountID string) ([]*Session, error) {
	ids, err := s.readIndex(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
				continue
			}
			return nil, err
		}
		if sess.IdleFor(now) > s.config.MaxIdle {
			continue
		}
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) readIndex(ctx context.Context, accountID string) ([]string, error) {
	blob, err := s.kv.Get(ctx, indexKey(accountID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapStoreErr(err)
	}
	ids, err := decodeIndex(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return ids, nil
}

// addToIndex appends id to the account index, dropping ids whose sessions are
// gone, and returns the ids evicted by MaxPerAccount. Liveness is checked
// before the atomic update because the update callback must not touch other
// keys.
func (s *Store) addToIndex(ctx context.Context, accountID, id string) ([]string, error) {
	existing, err := s.readIndex(ctx, accountID)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return nil, err
	}
	dead := make(map[string]struct{})
	for _, other := range existing {
		if _, err := s.Get(ctx, other); err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) || errors.Is(err, ErrCorrupt) {
				dead[other] = struct{}{}
				continue
			}
			return nil, err
		}
	}

	var evicted []string
	err = s.kv.Update(ctx, indexKey(accountID), func(current []byte, exists bool) ([]byte, time.Duration, error) {
		evicted = evicted[:0]
		var ids []string
		if exists {
			decoded, err := decodeIndex(current)
			if err == nil {
				ids = decoded
			}
		}
		ids = slices.DeleteFunc(ids, func(v string) bool {
			_, gone := dead[v]
			return gone || v == id
		})
		ids = append(ids, id)
		if limit := s.config.MaxPerAccount; limit > 0 && len(ids) > limit {
			evicted = append(evicted, ids[:len(ids)-limit]...)
			ids = slices.Clone(ids[len(ids)-limit:])
		}
		next, err := encodeIndex(ids)
		return next, 0, err
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return evicted, nil
}

func (s *Store) removeFromIndex(ctx context.Context, accountID, id string) error {
	err := s.kv.Update(ctx, indexKey(accountID), func(current []byte, exists bool) ([]byte, time.Duration, error) {
		if !exists {
			return nil, 0, nil
		}
		ids, err := decodeIndex(current)
		if err != nil {
			return nil, 0, nil
		}
		ids = slices.DeleteFunc(ids, func(v string) bool { return v == id })
		if len(ids) == 0 {
			return nil, 0, nil
		}
		next, err := encodeIndex(ids)
		return next, 0, err
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
