// Package storage persists uploaded images and returns their public URLs.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
)

// MaxImageSize bounds a decoded upload.
const MaxImageSize = 5 << 20

var ErrInvalidImage = errors.New("invalid image")

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// ImageStore saves images under a folder and deletes them by URL.
type ImageStore interface {
	Save(ctx context.Context, folder string, img *Image) (string, error)
	Delete(ctx context.Context, url string) error
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// DecodeDataURI parses an image sent as "data:image/png;base64,...".
func DecodeDataURI(s string) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: expected a base64 data URI", ErrInvalidImage)
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, contentType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return &Image{Data: data, ContentType: strings.ToLower(contentType), Ext: ext}, nil
}

// objectKey returns a fresh key for img under folder.
func objectKey(folder string, img *Image) string {
	return fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), img.Ext)
}

// New returns the image store selected by the configuration.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (ImageStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("storing images in S3", zap.String("bucket", s3cfg.BucketName))
		return NewS3Store(s3cfg, log), nil
	case "local":
		log.Info("storing images on disk", zap.String("root", cfg.MediaRoot))
		return NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
