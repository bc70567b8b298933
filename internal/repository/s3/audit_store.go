package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"studio-backend/internal/audit"
	"studio-backend/internal/domain"
)

const auditObjectKey = "data/audit-log.json"

// ObjectAPI is the subset of the S3 client the audit store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ClientConfig describes an S3-compatible object store.
type ClientConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewClient builds a path-style S3 client for a custom endpoint.
func NewClient(cfg ClientConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// AuditStore keeps the audit log as a single JSON object.
type AuditStore struct {
	client ObjectAPI
	bucket string
	key    string
}

// NewAuditStore stores the document at <prefix>data/audit-log.json in bucket.
func NewAuditStore(client ObjectAPI, bucket, prefix string) *AuditStore {
	return &AuditStore{
		client: client,
		bucket: bucket,
		key:    prefix + auditObjectKey,
	}
}

// Key returns the object key of the document.
func (s *AuditStore) Key() string {
	return s.key
}

// Load fetches the document. A missing object is an empty log.
func (s *AuditStore) Load(ctx context.Context) ([]domain.AuditLogEntry, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return audit.DecodeDocument(data)
}

// Save replaces the document.
func (s *AuditStore) Save(ctx context.Context, entries []domain.AuditLogEntry) error {
	document, err := audit.EncodeDocument(entries)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
