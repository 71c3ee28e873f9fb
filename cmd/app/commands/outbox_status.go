package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// RunOutboxStatus prints the outbox row count per status and the backlog health.
func RunOutboxStatus(
	ctx context.Context,
	statusUseCase outboxUseCase.StatusUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("reading outbox status")

	counts, err := statusUseCase.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count outbox messages: %w", err)
	}
	backlog, err := statusUseCase.Backlog(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox backlog: %w", err)
	}

	health := "ok"
	if backlog.Degraded {
		health = "degraded"
	}

	if format == "json" {
		byStatus := make(map[string]int64, len(counts))
		for _, c := range counts {
			byStatus[string(c.Status)] = c.Count
		}
		return writeJSON(writer, map[string]any{
			"statuses":    byStatus,
			"unpublished": backlog.Unpublished,
			"threshold":   backlog.Threshold,
			"health":      health,
		})
	}

	for _, c := range counts {
		if _, err := fmt.Fprintf(writer, "%-12s %d\n", c.Status, c.Count); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(writer, "Backlog: %d/%d (%s)\n", backlog.Unpublished, backlog.Threshold, health)
	return err
}
