package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3FileStorage implements FileStorage on a single S3 (or S3 compatible) bucket.
// Keys map to object keys directly.
type S3FileStorage struct {
	client *s3.Client
	bucket string
}

// NewS3FileStorage builds a client from the default AWS credential chain.
// Endpoint and PathStyle target S3 compatible servers such as MinIO.
func NewS3FileStorage(ctx context.Context, cfg *StorageConfig) (*S3FileStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newS3FileStorage(awsCfg, cfg), nil
}

func newS3FileStorage(awsCfg aws.Config, cfg *StorageConfig) *S3FileStorage {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// compatible servers do not all accept aws-chunked checksum trailers
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})
	return &S3FileStorage{client: client, bucket: cfg.Bucket}
}

// Store implements FileStorage.Store
func (s *S3FileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("Store", key, err, false)
	}

	if opts == nil || !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts != nil && opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.wrap("Store", key, err)
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (s *S3FileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("Retrieve", key, err, false)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, s.wrap("Retrieve", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, NewStorageError("Retrieve", key, err, true)
	}
	return data, nil
}

// Delete implements FileStorage.Delete. S3 deletes are idempotent, so a
// missing key is detected with a HEAD first.
func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return NewStorageError("Delete", key, ErrFileNotFound, false)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return s.wrap("Delete", key, err)
	}
	return nil
}

// Exists implements FileStorage.Exists
func (s *S3FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("Exists", key, err, false)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return false, nil
		}
		return false, s.wrap("Exists", key, err)
	}
	return true, nil
}

// List implements FileStorage.List
func (s *S3FileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	var files []FileMetadata

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.wrap("List", prefix, err)
		}
		for _, obj := range page.Contents {
			files = append(files, FileMetadata{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage.Close
func (s *S3FileStorage) Close() error {
	return nil
}

func (s *S3FileStorage) wrap(op, key string, err error) error {
	code := statusCode(err)
	switch {
	case code == http.StatusNotFound:
		return NewStorageError(op, key, ErrFileNotFound, false)
	case code >= 500 || code == http.StatusTooManyRequests || code == 0:
		return NewStorageError(op, key, fmt.Errorf("%w: %v", ErrStorageUnavailable, err), true)
	}
	return NewStorageError(op, key, err, false)
}

// statusCode extracts the HTTP status from an SDK response error, or 0
func statusCode(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
