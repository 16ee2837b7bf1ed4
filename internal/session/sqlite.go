package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
)

// SQLiteStore persists the session in session_kv table so it survives restarts
type SQLiteStore struct {
	// Serializes writers, profile merge is read-modify-write
	mu sync.Mutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const upsertKey = `-- name: Upsert session key
INSERT INTO session_kv (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

const selectKeys = `-- name: Select all session keys
SELECT key, value
FROM session_kv
WHERE key IN (?, ?, ?, ?)
`

const deleteKeys = `-- name: Delete all session keys
DELETE FROM session_kv
WHERE key IN (?, ?, ?, ?)
`

const selectValue = `-- name: Select session value
SELECT value
FROM session_kv
WHERE key = ?
`

func (s *SQLiteStore) Save(ctx context.Context, session models.Session) error {
	if !session.Valid() {
		return apperrors.ErrPartialSession
	}
	if session.IsZero() {
		return s.Clear(ctx)
	}

	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("can't encode profile. Err: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		values := [][2]string{
			{KeyToken, session.AccessToken},
			{KeyRefreshToken, session.RefreshToken},
			{KeyUserInfo, string(profile)},
			{KeyUserID, strconv.FormatInt(session.UserID, 10)},
		}
		for _, kv := range values {
			if _, err := tx.ExecContext(ctx, upsertKey, kv[0], kv[1]); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context) (models.Session, error) {
	var session models.Session

	rows, err := s.db.QueryContext(ctx, selectKeys, KeyToken, KeyRefreshToken, KeyUserInfo, KeyUserID)
	if err != nil {
		return session, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	values := make(map[string]string, 4)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return session, fmt.Errorf("db error: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return session, fmt.Errorf("db error: %w", err)
	}

	session.AccessToken = values[KeyToken]
	session.RefreshToken = values[KeyRefreshToken]
	if !session.Valid() {
		return models.Session{}, fmt.Errorf("stored session is corrupted: %w", apperrors.ErrPartialSession)
	}

	if raw := values[KeyUserID]; raw != "" {
		session.UserID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.Session{}, fmt.Errorf("stored user id %q is not a number: %w", raw, err)
		}
	}

	if raw := values[KeyUserInfo]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &session.Profile); err != nil {
			return models.Session{}, fmt.Errorf("stored profile is not valid json: %w", err)
		}
	}

	return session, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, deleteKeys, KeyToken, KeyRefreshToken, KeyUserInfo, KeyUserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MergeProfile(ctx context.Context, patch models.UserProfile) (models.UserProfile, error) {
	var merged models.UserProfile

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var token string
		err := tx.QueryRowContext(ctx, selectValue, KeyToken).Scan(&token)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return apperrors.ErrNotLoggedIn
		case err != nil:
			return fmt.Errorf("db error: %w", err)
		}

		var raw string
		err = tx.QueryRowContext(ctx, selectValue, KeyUserInfo).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("db error: %w", err)
		default:
			if err := json.Unmarshal([]byte(raw), &merged); err != nil {
				return fmt.Errorf("stored profile is not valid json: %w", err)
			}
		}

		merged = merged.Merge(patch)
		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("can't encode profile. Err: %w", err)
		}

		if _, err := tx.ExecContext(ctx, upsertKey, KeyUserInfo, string(encoded)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	return merged, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit()
		default:
			_ = tx.Rollback()
		}
	}()

	err = fn(tx)

	return err
}
