package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	red "github.com/redis/go-redis/v9"

	"studio-backend/internal/audit"
	"studio-backend/internal/domain"
)

const defaultAuditKey = "studio:audit-log"

// AuditStore keeps the audit log as a single JSON string value.
type AuditStore struct {
	client *red.Client
	key    string
}

// NewAuditStore constructs a Redis-backed audit document store.
func NewAuditStore(client *red.Client, key string) *AuditStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultAuditKey
	}
	return &AuditStore{client: client, key: key}
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*red.Client, error) {
	opts, err := red.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := red.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Load fetches the document. A missing key is an empty log.
func (s *AuditStore) Load(ctx context.Context) ([]domain.AuditLogEntry, error) {
	value, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get audit log: %w", err)
	}
	return audit.DecodeDocument(value)
}

// Save replaces the document. The key never expires.
func (s *AuditStore) Save(ctx context.Context, entries []domain.AuditLogEntry) error {
	document, err := audit.EncodeDocument(entries)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, document, 0).Err(); err != nil {
		return fmt.Errorf("redis set audit log: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *AuditStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
