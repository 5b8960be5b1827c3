package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/config"
	"github.com/assetmanager/core/internal/ports"
)

// S3RepositoryImpl stores the document as a single object in an S3
// compatible bucket. A PutObject replaces the object in one step, so readers
// never see a partial document.
type S3RepositoryImpl struct {
	client *minio.Client
	bucket string
	key    string
}

// NewS3Repository connects to the configured endpoint and checks the bucket
func NewS3Repository(ctx context.Context, cfg config.S3Config) (ports.DocumentRepository, error) {
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check s3 bucket: %w", err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("s3 bucket does not exist: %s", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create s3 bucket: %w", err)
		}
	}

	return &S3RepositoryImpl{
		client: client,
		bucket: cfg.Bucket,
		key:    strings.TrimPrefix(cfg.ObjectKey, "/"),
	}, nil
}

// normaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000"
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// Bare host:port is treated as plain HTTP, as for a local MinIO
	return raw, false, nil
}

func (r *S3RepositoryImpl) Driver() string {
	return "s3"
}

func (r *S3RepositoryImpl) Load(ctx context.Context) (entities.Document, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, r.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, r.mapError("get document", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, r.mapError("read document", err)
	}

	return entities.Document(data), nil
}

func (r *S3RepositoryImpl) Save(ctx context.Context, doc entities.Document) error {
	_, err := r.client.PutObject(ctx, r.bucket, r.key,
		bytes.NewReader(doc.Bytes()),
		int64(doc.Size()),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (r *S3RepositoryImpl) Delete(ctx context.Context) error {
	if err := r.client.RemoveObject(ctx, r.bucket, r.key, minio.RemoveObjectOptions{}); err != nil {
		return r.mapError("remove document", err)
	}
	return nil
}

func (r *S3RepositoryImpl) HealthCheck(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("check s3 bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("s3 bucket %s is gone", r.bucket)
	}
	return nil
}

func (r *S3RepositoryImpl) Close() error {
	return nil
}

func (r *S3RepositoryImpl) mapError(op string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return entities.ErrDocumentNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
