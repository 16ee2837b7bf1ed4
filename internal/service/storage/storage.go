package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ACHamster/travel-diary-mobile/internal/api"
	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/validate"
)

const (
	PathUpload = "/storage/upload"

	formField = "file"

	defaultWorkers = 3 // Number of concurrent uploads in UploadAll
)

type API interface {
	Do(ctx context.Context, req api.Request) (*api.Response, error)
}

// File to upload, Name is sent as multipart file name
type File struct {
	Name    string
	Content io.Reader
}

// Storage service uploads media to the CDN through the backend
type Service struct {
	api     API
	workers int
	logger  logger.Logger
}

func NewService(client API, l logger.Logger) *Service {
	return &Service{
		api:     client,
		workers: defaultWorkers,
		logger:  l,
	}
}

// Upload sends an image and returns its CDN address
func (s *Service) Upload(ctx context.Context, name string, content io.Reader) (models.UploadResult, error) {
	var result models.UploadResult
	err := s.upload(ctx, name, content, &result)
	return result, err
}

// UploadVideo sends a video, the backend answers with the video and its thumbnail addresses
func (s *Service) UploadVideo(ctx context.Context, name string, content io.Reader) (models.VideoUploadResult, error) {
	var result models.VideoUploadResult
	err := s.upload(ctx, name, content, &result)
	return result, err
}

// UploadAll uploads files concurrently. Results keep the order of files.
// First failure cancels uploads that did not start yet.
func (s *Service) UploadAll(ctx context.Context, files []File) ([]models.UploadResult, error) {
	if len(files) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	results := make([]models.UploadResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := s.Upload(ctx, f.Name, f.Content)
			if err != nil {
				return fmt.Errorf("can't upload %s. Err: %w", f.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Files uploaded", "count", len(files))
	return results, nil
}

func (s *Service) upload(ctx context.Context, name string, content io.Reader, out any) error {
	body, contentType, err := multipartBody(name, content)
	if err != nil {
		return err
	}

	resp, err := s.api.Do(ctx, api.Request{
		Method:         http.MethodPost,
		Path:           PathUpload,
		RawBody:        body,
		Header:         http.Header{"Content-Type": {contentType}},
		RedirectOnAuth: true,
	})
	if err != nil {
		return err
	}

	if err := resp.DecodeData(out); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("unexpected upload response: %w", err)
	}

	s.logger.Debug("File uploaded", "name", name, "size", len(body))
	return nil
}

func multipartBody(name string, content io.Reader) ([]byte, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("%w: file name is required", apperrors.ErrInvalidInput)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(formField, filepath.Base(name))
	if err != nil {
		return nil, "", fmt.Errorf("can't create multipart body. Err: %w", err)
	}

	n, err := io.Copy(part, content)
	if err != nil {
		return nil, "", fmt.Errorf("can't read %s. Err: %w", name, err)
	}
	if n == 0 {
		return nil, "", fmt.Errorf("%w: %s is empty", apperrors.ErrEmptyUpload, name)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("can't create multipart body. Err: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
