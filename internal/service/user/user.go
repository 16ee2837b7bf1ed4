package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/session"
)

const (
	PathInfo           = "/user/info/"
	PathHistory        = "/user-history"
	PathFavorites      = "/user-favorites"
	PathToggleFavorite = "/user-favorites/toggle"
)

type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

type postRef struct {
	PostID string `json:"postId"`
}

// User service: profile, browsing history and favorites of the logged in user
type Service struct {
	api    API
	store  session.Store
	logger logger.Logger
}

func NewService(client API, store session.Store, l logger.Logger) *Service {
	return &Service{
		api:    client,
		store:  store,
		logger: l,
	}
}

// Info fetches the profile of user id.
// Own profile is merged into the cached one and the merged result is returned.
func (s *Service) Info(ctx context.Context, id int64) (models.UserProfile, error) {
	var profile models.UserProfile

	if id <= 0 {
		return profile, fmt.Errorf("%w: user id must be positive", apperrors.ErrInvalidInput)
	}

	if err := s.api.Get(ctx, PathInfo+strconv.FormatInt(id, 10), nil, &profile); err != nil {
		return profile, fmt.Errorf("can't get user %d. Err: %w", id, err)
	}

	current, err := s.store.Load(ctx)
	if err != nil {
		return profile, fmt.Errorf("can't load session. Err: %w", err)
	}
	if current.UserID != id {
		return profile, nil
	}

	merged, err := s.store.MergeProfile(ctx, profile)
	if errors.Is(err, apperrors.ErrNotLoggedIn) {
		// logged out while the request was in flight
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("can't update cached profile. Err: %w", err)
	}

	s.logger.Debug("Cached profile updated", "user_id", id)
	return merged, nil
}

// SyncProfile refreshes the cached profile of the logged in user
func (s *Service) SyncProfile(ctx context.Context) (models.UserProfile, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("can't load session. Err: %w", err)
	}
	if current.UserID == 0 {
		return models.UserProfile{}, apperrors.ErrNoUserID
	}

	return s.Info(ctx, current.UserID)
}

// AddHistory records that the user opened the post
func (s *Service) AddHistory(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("%w: post id is required", apperrors.ErrInvalidInput)
	}

	if err := s.api.Post(ctx, PathHistory, postRef{PostID: postID}, nil); err != nil {
		return fmt.Errorf("can't add post %s to history. Err: %w", postID, err)
	}
	return nil
}

func (s *Service) History(ctx context.Context) ([]models.Post, error) {
	return s.posts(ctx, PathHistory)
}

// ToggleFavorite adds the post to favorites or removes it if already there
func (s *Service) ToggleFavorite(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("%w: post id is required", apperrors.ErrInvalidInput)
	}

	if err := s.api.Post(ctx, PathToggleFavorite, postRef{PostID: postID}, nil); err != nil {
		return fmt.Errorf("can't toggle favorite %s. Err: %w", postID, err)
	}
	return nil
}

func (s *Service) Favorites(ctx context.Context) ([]models.Post, error) {
	return s.posts(ctx, PathFavorites)
}

func (s *Service) posts(ctx context.Context, path string) ([]models.Post, error) {
	var posts []models.Post

	if err := s.api.Get(ctx, path, nil, &posts); err != nil {
		return nil, fmt.Errorf("can't get %s. Err: %w", path, err)
	}
	return posts, nil
}
