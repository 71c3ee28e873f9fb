package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/inbox/domain"
)

const antifraudRoutingPrefix = "client."

// AntifraudHandler freezes and unfreezes the accounts of blocked clients.
type AntifraudHandler struct {
	accounts AccountFreezer
	logger   *slog.Logger
}

// NewAntifraudHandler creates a new AntifraudHandler.
func NewAntifraudHandler(accounts AccountFreezer, logger *slog.Logger) *AntifraudHandler {
	return &AntifraudHandler{accounts: accounts, logger: logger}
}

// Name returns the inbox handler name.
func (h *AntifraudHandler) Name() string { return domain.HandlerAntifraud }

// Binds accepts client.* routing keys.
func (h *AntifraudHandler) Binds(routingKey string) bool {
	return strings.HasPrefix(routingKey, antifraudRoutingPrefix)
}

// Handle applies a ClientBlocked or ClientUnblocked event.
func (h *AntifraudHandler) Handle(ctx context.Context, in *Inbound) error {
	ev, err := events.Decode(in.EventType, in.Envelope.Payload)
	if err != nil {
		return err
	}

	switch e := ev.(type) {
	case events.ClientBlocked:
		return h.setFrozen(ctx, in, e.ClientID, true)
	case events.ClientUnblocked:
		return h.setFrozen(ctx, in, e.ClientID, false)
	default:
		return apperrors.Wrapf(apperrors.ErrUnsupported, "antifraud cannot handle %s", ev.Kind())
	}
}

func (h *AntifraudHandler) setFrozen(ctx context.Context, in *Inbound, clientID uuid.UUID, frozen bool) error {
	changed, err := h.accounts.SetOwnerFrozen(ctx, clientID, frozen)
	if err != nil {
		return fmt.Errorf("failed to set frozen=%t for client %s: %w", frozen, clientID, err)
	}

	h.logger.Info("client accounts updated",
		slog.String("message_id", in.MessageID.String()),
		slog.String("client_id", clientID.String()),
		slog.String("correlation_id", in.Envelope.Meta.CorrelationID.String()),
		slog.Bool("frozen", frozen),
		slog.Int64("accounts", changed),
	)
	return nil
}
