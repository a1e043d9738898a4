package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/graphcol/internal/logger"
)

// Client stores objects in an S3-compatible bucket (R2, MinIO, S3).
type Client struct {
	mc     *minio.Client
	bucket string
}

// Config holds S3 connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// NewClient creates a new storage client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// Init creates the bucket if it doesn't exist
func (c *Client) Init(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", c.bucket, err)
		}
		logger.Info("bucket created", "bucket", c.bucket)
	}

	return nil
}

// Put uploads data to path in the bucket
func (c *Client) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if sum := checksumFrom(ctx); sum != "" {
		opts.UserMetadata = map[string]string{"blake3": sum}
	}

	_, err := c.mc.PutObject(ctx, c.bucket, path, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", c.bucket, path, err)
	}

	logger.Debug("object uploaded", "bucket", c.bucket, "path", path, "size", len(data))
	return nil
}

// Get downloads an object from the bucket
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.bucket, path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", c.bucket, path, err)
	}

	return data, nil
}

// Bucket returns the bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

// Healthy checks if the endpoint is reachable
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.mc.BucketExists(ctx, c.bucket)
	return err == nil
}
