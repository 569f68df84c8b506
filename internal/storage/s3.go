package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

// S3Storage stores objects in an S3-compatible bucket with keys of the
// form kind/base/parent/filename.
type S3Storage struct {
	client *minio.Client
	bucket string
}

func NewS3(endpoint, accessKey, secretKey, region, bucket string) (*S3Storage, error) {
	secure := true
	host := endpoint
	if strings.HasPrefix(host, "http://") {
		host = strings.TrimPrefix(host, "http://")
		secure = false
	} else {
		host = strings.TrimPrefix(host, "https://")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeStorageFailure, "check bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, showerrors.Wrap(showerrors.CodeStorageFailure, "create bucket", err)
		}
	}
	return &S3Storage{client: client, bucket: bucket}, nil
}

func (s *S3Storage) key(base, parent, filename, kind string) string {
	return kind + "/" + base + "/" + parent + "/" + filename
}

func (s *S3Storage) Upload(ctx context.Context, base, parent, filename, kind string, r io.Reader, size int64) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, s.key(base, parent, filename, kind), r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(filename),
	})
	if err != nil {
		return 0, showerrors.Wrap(showerrors.CodeStorageFailure, "upload object", err)
	}
	return info.Size, nil
}

func (s *S3Storage) Download(ctx context.Context, base, parent, filename, kind string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(base, parent, filename, kind), minio.GetObjectOptions{})
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeStorageFailure, "open object", err)
	}
	return obj, nil
}

func (s *S3Storage) Stat(ctx context.Context, base, parent, filename, kind string) (*FileInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(base, parent, filename, kind), minio.StatObjectOptions{})
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeStorageFailure, "stat object", err)
	}
	ct := info.ContentType
	if ct == "" {
		ct = contentTypeFor(filename)
	}
	return &FileInfo{Filename: filename, ContentType: ct, Size: info.Size}, nil
}

func (s *S3Storage) Exists(ctx context.Context, base, parent, filename, kind string) bool {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(base, parent, filename, kind), minio.StatObjectOptions{})
	return err == nil
}

func (s *S3Storage) Delete(ctx context.Context, base, parent, filename, kind string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(base, parent, filename, kind), minio.RemoveObjectOptions{})
	if err != nil {
		return showerrors.Wrap(showerrors.CodeStorageFailure, "delete object", err)
	}
	return nil
}
