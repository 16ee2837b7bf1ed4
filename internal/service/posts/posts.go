package posts

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/validate"
)

const (
	PathPosts        = "/posts"
	PathList         = "/posts/list"
	PathListApproved = "/posts/list/approved"
	PathListMine     = "/posts/my"
)

type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Put(ctx context.Context, path string, body any, out any) error
	Delete(ctx context.Context, path string, body any, out any) error
}

type Service struct {
	api    API
	logger logger.Logger
}

func NewService(client API, l logger.Logger) *Service {
	return &Service{
		api:    client,
		logger: l,
	}
}

// List returns posts in every audit status (admin view)
func (s *Service) List(ctx context.Context, page models.Page) ([]models.Post, error) {
	return s.list(ctx, PathList, pageQuery(page))
}

// ListApproved returns the public feed
func (s *Service) ListApproved(ctx context.Context, page models.Page) ([]models.Post, error) {
	return s.list(ctx, PathListApproved, pageQuery(page))
}

// ListMine returns posts of the logged in user
func (s *Service) ListMine(ctx context.Context) ([]models.Post, error) {
	return s.list(ctx, PathListMine, nil)
}

func (s *Service) Get(ctx context.Context, id string) (models.Post, error) {
	var post models.Post

	path, err := postPath(id)
	if err != nil {
		return post, err
	}

	if err := s.api.Get(ctx, path, nil, &post); err != nil {
		return post, fmt.Errorf("can't get post %s. Err: %w", id, err)
	}
	return post, nil
}

func (s *Service) Create(ctx context.Context, in models.PostInput) (models.Post, error) {
	var post models.Post

	if err := validatePostInput(in); err != nil {
		return post, err
	}
	if in.Images == nil {
		in.Images = []string{}
	}

	if err := s.api.Post(ctx, PathPosts, in, &post); err != nil {
		return post, fmt.Errorf("can't create post. Err: %w", err)
	}

	s.logger.Info("Post created", "post_id", post.ID, "images", len(in.Images), "video", in.Video != "")
	return post, nil
}

func (s *Service) Update(ctx context.Context, id string, patch models.PostPatch) (models.Post, error) {
	var post models.Post

	path, err := postPath(id)
	if err != nil {
		return post, err
	}

	if err := s.api.Put(ctx, path, patch, &post); err != nil {
		return post, fmt.Errorf("can't update post %s. Err: %w", id, err)
	}
	return post, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	path, err := postPath(id)
	if err != nil {
		return err
	}

	if err := s.api.Delete(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("can't delete post %s. Err: %w", id, err)
	}

	s.logger.Info("Post deleted", "post_id", id)
	return nil
}

func (s *Service) list(ctx context.Context, path string, query url.Values) ([]models.Post, error) {
	var posts []models.Post

	if err := s.api.Get(ctx, path, query, &posts); err != nil {
		return nil, fmt.Errorf("can't list posts. Err: %w", err)
	}
	return posts, nil
}

func validatePostInput(in models.PostInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if len(in.Images) == 0 && in.Video == "" {
		return &validate.FieldsError{Fields: map[string]string{
			"images": "At least one image or a video is required",
		}}
	}
	return nil
}

func postPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: post id is required", apperrors.ErrInvalidInput)
	}
	return PathPosts + "/" + url.PathEscape(id), nil
}

func pageQuery(page models.Page) url.Values {
	query := url.Values{}
	if page.Page > 0 {
		query.Set("page", strconv.Itoa(page.Page))
	}
	if page.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(page.PageSize))
	}
	return query
}
