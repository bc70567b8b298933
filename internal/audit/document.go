package audit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"studio-backend/internal/domain"
)

// DecodeDocument parses a stored audit document. An empty document is an empty log.
func DecodeDocument(data []byte) ([]domain.AuditLogEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var entries []domain.AuditLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit document: %w", err)
	}
	return entries, nil
}

// EncodeDocument serializes the audit log as an indented JSON array.
func EncodeDocument(entries []domain.AuditLogEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit document: %w", err)
	}
	return data, nil
}
