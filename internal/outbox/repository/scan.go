// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/allisson/ledger/internal/outbox/domain"
)

const messageColumns = `id, sequence, account_id, occurred_at, event_type, routing_key, payload, headers,
	status, attempts, next_attempt_at, published_at, last_error`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal headers: %w", err)
	}
	return data, nil
}

func unmarshalHeaders(msg *domain.Message, raw []byte) error {
	msg.Headers = map[string]string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &msg.Headers); err != nil {
		return fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	return nil
}
