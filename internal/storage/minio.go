package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rostrum/internal/observability"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
)

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// MinIOConfig holds the S3-compatible endpoint settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore keeps blobs in one bucket of an S3-compatible server.
type MinIOStore struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// NewMinIOStore connects to the endpoint and creates the bucket when missing.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	endpoint := client.EndpointURL()
	base := fmt.Sprintf("%s://%s/%s", endpoint.Scheme, endpoint.Host, cfg.Bucket)
	observability.GlobalLogger.Info("connected to blob store", "endpoint", endpoint.Host, "bucket", cfg.Bucket)
	return newMinIOStore(client, cfg.Bucket, base), nil
}

func newMinIOStore(api objectAPI, bucket, baseURL string) *MinIOStore {
	return &MinIOStore{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MinIOStore) Upload(ctx context.Context, content []byte, path, contentType string) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "minio", "PutObject")
	defer span.End()

	path, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("blob.path", path), attribute.Int("blob.size", len(content)))

	_, err = s.api.PutObject(ctx, s.bucket, path, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return s.baseURL + "/" + path, nil
}

func (s *MinIOStore) Download(ctx context.Context, path string) ([]byte, error) {
	ctx, span := observability.StartClientSpan(ctx, "minio", "GetObject")
	defer span.End()

	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := s.api.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinIOError(path, err)
	}
	return data, nil
}

// Delete stats the object first so a missing object reports false
// instead of the silent success RemoveObject gives.
func (s *MinIOStore) Delete(ctx context.Context, path string) (bool, error) {
	ctx, span := observability.StartClientSpan(ctx, "minio", "RemoveObject")
	defer span.End()

	path, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	if _, err := s.api.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{}); err != nil {
		if isMinIONotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.api.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MinIOStore) PathFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func translateMinIOError(path string, err error) error {
	if isMinIONotFound(err) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}
