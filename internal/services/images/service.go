package images

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/aim840912/haode-api/pkg/logger"
	"github.com/aim840912/haode-api/supabase/client"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 5 << 20

// Bucket is the slice of the Supabase storage API the service needs.
type Bucket interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (*client.Response, error)
	Delete(ctx context.Context, paths []string) (*client.Response, error)
	GetPublicURL(path string) string
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service stores product and content images in a public Supabase bucket.
type Service struct {
	bucket Bucket
	log    *logger.Logger
}

// New constructs an image service over a storage bucket.
func New(bucket Bucket, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("images")
	}
	return &Service{bucket: bucket, log: log}
}

// Upload stores image bytes under a fresh UUID path scoped to the owning
// entity, e.g. "products/3f8a....jpg", and returns the path with its
// public URL.
func (s *Service) Upload(ctx context.Context, entity string, data []byte, contentType string) (string, string, error) {
	entity = strings.Trim(strings.TrimSpace(entity), "/")
	if entity == "" {
		return "", "", fmt.Errorf("entity is required")
	}
	if strings.Contains(entity, "/") || strings.Contains(entity, "..") {
		return "", "", fmt.Errorf("invalid entity %q", entity)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("file is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", "", fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	}
	ext, ok := extByContentType[contentType]
	if !ok {
		return "", "", fmt.Errorf("unsupported content type %q", contentType)
	}

	objectPath := path.Join(entity, uuid.NewString()+ext)

	resp, err := s.bucket.Upload(ctx, objectPath, data, contentType)
	if err != nil {
		return "", "", fmt.Errorf("upload image: %w", err)
	}
	if err := resp.Error(); err != nil {
		return "", "", fmt.Errorf("upload image: %w", err)
	}

	s.log.WithField("path", objectPath).
		WithField("bytes", len(data)).
		Info("image uploaded")
	return objectPath, s.bucket.GetPublicURL(objectPath), nil
}

// Delete removes an image by its object path.
func (s *Service) Delete(ctx context.Context, objectPath string) error {
	objectPath = strings.Trim(strings.TrimSpace(objectPath), "/")
	if objectPath == "" {
		return fmt.Errorf("path is required")
	}
	if strings.Contains(objectPath, "..") {
		return fmt.Errorf("invalid path %q", objectPath)
	}

	resp, err := s.bucket.Delete(ctx, []string{objectPath})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if err := resp.Error(); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	s.log.WithField("path", objectPath).Info("image deleted")
	return nil
}

// PublicURL returns the public URL for a stored image.
func (s *Service) PublicURL(objectPath string) string {
	return s.bucket.GetPublicURL(objectPath)
}
