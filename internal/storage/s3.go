package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
)

// S3Store keeps images in an S3 bucket.
type S3Store struct {
	s3Config *config.S3Config
	log      *zap.Logger
}

func NewS3Store(s3Config *config.S3Config, log *zap.Logger) *S3Store {
	return &S3Store{s3Config: s3Config, log: log}
}

func (s *S3Store) Save(ctx context.Context, folder string, img *Image) (string, error) {
	key := objectKey(folder, img)
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := s.s3Config.ObjectURL(key)
	s.log.Debug("uploaded image", zap.String("url", url))
	return url, nil
}

// Delete removes the object behind url. URLs outside the bucket are ignored.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := s.s3Config.ObjectKey(url)
	if !ok {
		return nil
	}
	_, err := s.s3Config.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
