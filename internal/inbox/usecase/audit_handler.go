package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/inbox/domain"
)

// AuditHandler writes every event it receives to the audit trail.
type AuditHandler struct {
	repo AuditRepository
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(repo AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// Name returns the inbox handler name.
func (h *AuditHandler) Name() string { return domain.HandlerAudit }

// Binds accepts every routing key.
func (h *AuditHandler) Binds(string) bool { return true }

// Handle stores the raw event together with its lineage.
func (h *AuditHandler) Handle(ctx context.Context, in *Inbound) error {
	meta := in.Envelope.Meta
	return h.repo.CreateAuditEvent(ctx, &domain.AuditEvent{
		ID:            uuid.Must(uuid.NewV7()),
		MessageID:     in.MessageID,
		EventType:     in.EventType,
		RoutingKey:    in.RoutingKey,
		CorrelationID: nullable(meta.CorrelationID),
		CausationID:   nullable(meta.CausationID),
		Payload:       string(in.Body),
		ReceivedAt:    in.ReceivedAt,
	})
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
