package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	cfg "github.com/maheshrc27/contentflow/configs"
)

// R2Service publishes local media to a Cloudflare R2 bucket so platforms that
// only accept public URLs can fetch it.
type R2Service struct {
	config cfg.R2
	client *s3.Client
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	if r2.AccountID == "" || r2.BucketName == "" || r2.PublicBaseURL == "" {
		return nil, errors.New("r2 is not configured")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &R2Service{config: r2, client: client}, nil
}

func (r *R2Service) UploadToR2(ctx context.Context, key string, file []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	_, err := r.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// PublicURL uploads the file under its base name and returns the public URL.
func (r *R2Service) PublicURL(ctx context.Context, localPath string) (string, error) {
	file, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("error reading media file: %w", err)
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(file); err == nil && kind != types.Unknown {
		contentType = kind.MIME.Value
	}

	key := filepath.Base(localPath)
	if err := r.UploadToR2(ctx, key, file, contentType); err != nil {
		return "", fmt.Errorf("error uploading %s to r2: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", r.config.PublicBaseURL, key), nil
}
