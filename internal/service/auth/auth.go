package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ACHamster/travel-diary-mobile/internal/api"
	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/session"
	"github.com/ACHamster/travel-diary-mobile/internal/validate"
)

const (
	PathSignIn      = "/auth/signin"
	PathSignUp      = "/auth/signup"
	PathLogout      = "/auth/logout"
	PathStatus      = "/auth/status"
	PathVerifyAdmin = "/auth/verifyadmin"

	DefaultUserGroup = "register"
)

// API is the part of api.Client the service relies on
type API interface {
	Do(ctx context.Context, req api.Request) (*api.Response, error)
	Refresh(ctx context.Context) (models.Session, error)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Username  string `json:"username" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Avatar    string `json:"avatar,omitempty" validate:"omitempty,url"`
	UserGroup string `json:"userGroup"`
}

// Auth service manages session lifecycle: login, logout and token refresh
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

// Login exchanges credentials for a session and stores it.
// Store is left untouched on any failure.
func (s *Service) Login(ctx context.Context, req LoginRequest) (models.UserProfile, error) {
	if err := validate.Struct(req); err != nil {
		return models.UserProfile{}, err
	}

	resp, err := s.api.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        PathSignIn,
		Body:        req,
		SkipRefresh: true,
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	var result models.AuthResult
	if err := resp.Decode(&result); err != nil {
		return models.UserProfile{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidAuthResponse, err)
	}
	if result.Token == "" || result.RefreshToken == "" || result.User.ID == 0 {
		return models.UserProfile{}, fmt.Errorf("%w: token, refreshToken and user.id are required", apperrors.ErrInvalidAuthResponse)
	}

	if err := s.store.Save(ctx, result.Session()); err != nil {
		return models.UserProfile{}, fmt.Errorf("can't save session. Err: %w", err)
	}

	s.logger.Info("User logged in", "user_id", result.User.ID, "username", result.User.Username)
	return result.User, nil
}

// SignUp registers a new account. Session is not created, the user has to log in afterwards.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (json.RawMessage, error) {
	if req.UserGroup == "" {
		req.UserGroup = DefaultUserGroup
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	resp, err := s.api.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        PathSignUp,
		Body:        req,
		SkipRefresh: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", "username", req.Username)
	return json.RawMessage(resp.Body), nil
}

// Logout notifies the server and clears the local session.
// Server failure is logged only, local session is cleared anyway.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.api.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        PathLogout,
		SkipRefresh: true,
	})
	if err != nil {
		s.logger.Warn("Server logout failed, clearing local session anyway", "error", err)
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("can't clear session. Err: %w", err)
	}

	s.logger.Info("User logged out")
	return nil
}

// RefreshAccessToken forces a refresh shared with any refresh already in flight
func (s *Service) RefreshAccessToken(ctx context.Context) (models.Session, error) {
	return s.api.Refresh(ctx)
}

// EnsureFresh refreshes the session ahead of time when the access token expires within leeway.
// Opaque tokens and anonymous sessions are left alone.
func (s *Service) EnsureFresh(ctx context.Context, leeway time.Duration) error {
	current, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("can't load session. Err: %w", err)
	}
	if current.IsZero() {
		return nil
	}

	exp, ok := session.AccessExpiry(current.AccessToken)
	if !ok || time.Until(exp) > leeway {
		return nil
	}

	s.logger.Debug("Access token expires soon, refreshing", "expires_at", exp)
	_, err = s.api.Refresh(ctx)
	return err
}

// Status returns server view of the current session
func (s *Service) Status(ctx context.Context) (json.RawMessage, error) {
	resp, err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: PathStatus})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// VerifyAdmin reports whether the current user belongs to the admin group
func (s *Service) VerifyAdmin(ctx context.Context) (bool, error) {
	_, err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: PathVerifyAdmin})

	// Terminal 403 is wrapped into AuthError after the refresh attempt
	var httpErr *api.HTTPError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, err
	}
}

// CurrentUser returns the stored session
func (s *Service) CurrentUser(ctx context.Context) (models.Session, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return models.Session{}, fmt.Errorf("can't load session. Err: %w", err)
	}
	if current.IsZero() {
		return models.Session{}, apperrors.ErrNotLoggedIn
	}
	return current, nil
}
