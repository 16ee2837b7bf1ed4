package session

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/db"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/testutil"
)

var alice = models.Session{
	AccessToken:  "a1",
	RefreshToken: "r1",
	UserID:       7,
	Profile: models.UserProfile{
		ID:       7,
		Username: "alice",
		Email:    "alice@example.com",
	},
}

func TestStore(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			return NewSQLiteStore(testutil.OpenSessionDB(t))
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("empty store loads anonymous session", func(t *testing.T) {
				store := newStore(t)

				s, err := store.Load(t.Context())

				require.NoError(t, err)
				assert.True(t, s.IsZero())
			})

			t.Run("save and load", func(t *testing.T) {
				store := newStore(t)

				err := store.Save(t.Context(), alice)
				require.NoError(t, err)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, alice, s)
			})

			t.Run("save replaces previous session", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Save(t.Context(), alice))

				next := alice
				next.AccessToken = "a2"
				next.RefreshToken = "r2"
				err := store.Save(t.Context(), next)
				require.NoError(t, err)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, "a2", s.AccessToken)
				assert.Equal(t, "r2", s.RefreshToken)
			})

			t.Run("partial session rejected", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Save(t.Context(), alice))

				err := store.Save(t.Context(), models.Session{AccessToken: "only-access"})
				require.ErrorIs(t, err, apperrors.ErrPartialSession)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, alice, s, "previous session must stay untouched")
			})

			t.Run("clear removes everything", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Save(t.Context(), alice))

				err := store.Clear(t.Context())
				require.NoError(t, err)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, models.Session{}, s)
			})

			t.Run("clear on empty store", func(t *testing.T) {
				store := newStore(t)

				err := store.Clear(t.Context())

				require.NoError(t, err)
			})

			t.Run("save zero session clears", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Save(t.Context(), alice))

				err := store.Save(t.Context(), models.Session{})
				require.NoError(t, err)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.True(t, s.IsZero())
			})

			t.Run("merge profile without session", func(t *testing.T) {
				store := newStore(t)

				_, err := store.MergeProfile(t.Context(), models.UserProfile{ID: 7, Username: "alice"})

				require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, models.Session{}, s, "nothing stored for anonymous session")
			})

			t.Run("merge profile keeps known fields", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Save(t.Context(), alice))

				merged, err := store.MergeProfile(t.Context(), models.UserProfile{AvatarURL: "https://cdn.example.com/a.png"})
				require.NoError(t, err)

				want := alice.Profile
				want.AvatarURL = "https://cdn.example.com/a.png"
				assert.Equal(t, want, merged)

				s, err := store.Load(t.Context())
				require.NoError(t, err)
				assert.Equal(t, want, s.Profile)
				assert.Equal(t, "a1", s.AccessToken, "tokens not touched by merge")
			})
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	open := func() *sql.DB {
		conn, err := db.OpenAndMigrate(t.Context(), path)
		require.NoError(t, err)
		return conn
	}

	conn := open()
	err := NewSQLiteStore(conn).Save(t.Context(), alice)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn = open()
	defer conn.Close() // nolint:errcheck

	s, err := NewSQLiteStore(conn).Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, alice, s, "session should survive reopen")
}

func TestSQLiteStore_Corrupted(t *testing.T) {
	conn := testutil.OpenSessionDB(t)
	store := NewSQLiteStore(conn)

	t.Run("half written session", func(t *testing.T) {
		_, err := conn.ExecContext(t.Context(), upsertKey, KeyToken, "a1")
		require.NoError(t, err)

		_, err = store.Load(t.Context())

		require.ErrorIs(t, err, apperrors.ErrPartialSession)
	})

	t.Run("user id not a number", func(t *testing.T) {
		require.NoError(t, store.Save(t.Context(), alice))
		_, err := conn.ExecContext(t.Context(), upsertKey, KeyUserID, "seven")
		require.NoError(t, err)

		_, err = store.Load(t.Context())

		require.Error(t, err)
		require.Contains(t, err.Error(), "seven")
	})
}

func TestAccessExpiry(t *testing.T) {
	t.Run("jwt with exp", func(t *testing.T) {
		exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("server-secret"))
		require.NoError(t, err)

		got, ok := AccessExpiry(token)

		require.True(t, ok)
		assert.True(t, exp.Equal(got), "expected %s, got %s", exp, got)
	})

	t.Run("expired jwt still parsed", func(t *testing.T) {
		exp := time.Now().Add(-time.Hour).Truncate(time.Second)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("server-secret"))
		require.NoError(t, err)

		got, ok := AccessExpiry(token)

		require.True(t, ok)
		assert.True(t, exp.Equal(got))
	})

	t.Run("jwt without exp", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).
			SignedString([]byte("server-secret"))
		require.NoError(t, err)

		_, ok := AccessExpiry(token)

		assert.False(t, ok)
	})

	t.Run("opaque token", func(t *testing.T) {
		_, ok := AccessExpiry("a1")

		assert.False(t, ok)
	})
}
