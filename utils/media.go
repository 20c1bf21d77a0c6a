// utils/media.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MediaStore keeps bounty and item images and returns their public URL
type MediaStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// R2Config is the Cloudflare R2 bucket the media store writes to
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

type R2MediaStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewR2MediaStore(ctx context.Context, rc R2Config) (*R2MediaStore, error) {
	if rc.AccountID == "" || rc.Bucket == "" {
		return nil, fmt.Errorf("R2 account id and bucket are required")
	}
	baseURL := rc.CDNBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKeyID, rc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2MediaStore{client: client, bucket: rc.Bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *R2MediaStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// MediaKey builds an object key like "bounties/follow-us-on-x-<uuid>.png"
func MediaKey(prefix, title, filename string) string {
	name := slug.Make(title)
	if name == "" {
		name = "media"
	}
	if len(name) > 60 {
		name = strings.Trim(name[:60], "-")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s-%s%s", strings.Trim(prefix, "/"), name, uuid.NewString(), ext)
}

// UploadMultipart stores an uploaded form file under prefix
func UploadMultipart(ctx context.Context, store MediaStore, fh *multipart.FileHeader, prefix, title string) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return store.Put(ctx, MediaKey(prefix, title, fh.Filename), contentType, buf)
}
