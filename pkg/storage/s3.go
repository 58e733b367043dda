// Package storage wraps the object store holding motion recordings,
// converted artifacts and patient uploads.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

var ErrContainerNotAllowed = errors.New("storage: container not allowed")

type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// Container is the bucket used by the ingestion pipeline.
	Container string
	// UploadContainers may be handed out as delegated upload URLs.
	UploadContainers []string
	PresignTTL       time.Duration
}

// Client reads and writes named blobs. Container maps to an S3 bucket.
type Client struct {
	s3        *s3.Client
	presign   *s3.PresignClient
	cfg       Config
	allowed   map[string]struct{}
	publicURL string
}

// New builds a client from the default AWS credential chain, overridden by
// static keys when they are configured. A custom endpoint (MinIO,
// LocalStack) switches to path-style addressing.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: awsCfg.BaseEndpoint,
		UsePathStyle: cfg.Endpoint != "",
	}
	if cfg.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return NewClient(s3.New(s3Opts), cfg), nil
}

func NewClient(client *s3.Client, cfg Config) *Client {
	allowed := make(map[string]struct{}, len(cfg.UploadContainers))
	for _, c := range cfg.UploadContainers {
		allowed[c] = struct{}{}
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}

	publicURL := fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	if cfg.Endpoint != "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &Client{
		s3:        client,
		presign:   s3.NewPresignClient(client),
		cfg:       cfg,
		allowed:   allowed,
		publicURL: publicURL,
	}
}

// Download returns the full content of a blob in the ingestion container.
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Container),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	log.Debug().Str("blob", name).Int("bytes", len(data)).Msg("Downloaded blob")
	return data, nil
}

// Upload writes data under name, replacing any existing blob, and returns
// the blob URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Container),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", name, err)
	}
	return c.URL(name), nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Container),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

// URL is the path-style address of a blob in the ingestion container.
func (c *Client) URL(name string) string {
	return c.publicURL + "/" + c.cfg.Container + "/" + url.PathEscape(name)
}

// BlobName extracts the object key from a URL produced by URL.
func BlobName(blobURL string) string {
	u, err := url.Parse(blobURL)
	if err != nil || u.Path == "" {
		return path.Base(blobURL)
	}
	return path.Base(u.Path)
}

// UploadGrant is a short-lived URL the browser can PUT a file to directly.
type UploadGrant struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Container string    `json:"container"`
	Blob      string    `json:"blob"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PresignUpload issues a delegated upload URL for blob in one of the
// configured upload containers.
func (c *Client) PresignUpload(ctx context.Context, container, blob string) (*UploadGrant, error) {
	if _, ok := c.allowed[container]; !ok {
		return nil, ErrContainerNotAllowed
	}

	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blob),
	}, s3.WithPresignExpires(c.cfg.PresignTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadGrant{
		URL:       req.URL,
		Method:    req.Method,
		Container: container,
		Blob:      blob,
		ExpiresAt: time.Now().Add(c.cfg.PresignTTL).UTC(),
	}, nil
}
