package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const (
	pingTimeout   = 5 * time.Second
	publicBaseURL = "https://storage.googleapis.com"
)

var (
	errBucketRequired = errors.New("gcs bucket name is required")
	errObjectRequired = errors.New("gcs object name is required")
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// objectStore is the slice of the storage client the uploader needs.
type objectStore interface {
	NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser
	BucketAttrs(ctx context.Context, bucket string) error
	Close() error
}

type Client struct {
	store         objectStore
	defaultBucket string
	uploadTimeout time.Duration
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errBucketRequired
	}

	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	client := newClient(storageAdapter{client: sc}, cfg.BucketName, cfg.UploadTimeout)
	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

func newClient(store objectStore, bucket string, uploadTimeout time.Duration) *Client {
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &Client{store: store, defaultBucket: bucket, uploadTimeout: uploadTimeout}
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Ping checks that the default bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errBucketRequired
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.store.BucketAttrs(ctx, c.defaultBucket)
}

// Upload streams body into the default bucket and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	if c == nil || c.store == nil {
		return "", errors.New("gcs client not initialized")
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return "", errObjectRequired
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	w := c.store.NewWriter(ctx, c.defaultBucket, object, contentType)
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", object, err)
	}
	return PublicURL(c.defaultBucket, object), nil
}

// PublicURL is the storage.googleapis.com address of an object.
func PublicURL(bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/%s/%s", publicBaseURL, url.PathEscape(bucket), strings.Join(segments, "/"))
}

type storageAdapter struct {
	client *storage.Client
}

func (a storageAdapter) NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
	w := a.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (a storageAdapter) BucketAttrs(ctx context.Context, bucket string) error {
	_, err := a.client.Bucket(bucket).Attrs(ctx)
	return err
}

func (a storageAdapter) Close() error {
	return a.client.Close()
}
