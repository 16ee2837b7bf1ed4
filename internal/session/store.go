package session

import (
	"context"

	"github.com/ACHamster/travel-diary-mobile/internal/models"
)

// Keys under which session fields are persisted
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUserInfo     = "userInfo"
	KeyUserID       = "userId"
)

// Store keeps the client session
// All four fields are written and removed together, readers never observe a half-written session
type Store interface {
	// Save replaces the stored session
	// Must return apperrors.ErrPartialSession if only one of the tokens is set
	Save(ctx context.Context, s models.Session) error

	// Load returns the stored session or zero session if nobody is logged in
	Load(ctx context.Context) (models.Session, error)

	// Clear removes all session fields
	Clear(ctx context.Context) error

	// MergeProfile merges non-zero fields of patch into cached profile and returns the result
	// Returns apperrors.ErrNotLoggedIn and stores nothing when no session is held
	MergeProfile(ctx context.Context, patch models.UserProfile) (models.UserProfile, error)
}
