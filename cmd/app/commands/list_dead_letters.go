package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	inboxUseCase "github.com/allisson/ledger/internal/inbox/usecase"
)

// RunListDeadLetters prints the dead letters of a handler for manual remediation.
func RunListDeadLetters(
	ctx context.Context,
	deadLetterUseCase inboxUseCase.DeadLetterUseCase,
	logger *slog.Logger,
	writer io.Writer,
	handler string,
	offset, limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("listing dead letters",
		slog.String("handler", handler),
		slog.Int("offset", offset),
		slog.Int("limit", limit),
	)

	letters, err := deadLetterUseCase.List(ctx, handler, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if format == "json" {
		out := make([]map[string]any, 0, len(letters))
		for _, letter := range letters {
			out = append(out, map[string]any{
				"id":          letter.ID,
				"message_id":  letter.MessageID,
				"handler":     letter.Handler,
				"received_at": letter.ReceivedAt.UTC().Format(time.RFC3339),
				"error":       letter.Error,
				"payload":     letter.Payload,
			})
		}
		return writeJSON(writer, out)
	}

	if len(letters) == 0 {
		_, err = fmt.Fprintf(writer, "No dead letters for handler %s\n", handler)
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE ID\tRECEIVED AT\tERROR")
	for _, letter := range letters {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", letter.MessageID, letter.ReceivedAt.UTC().Format(time.RFC3339), letter.Error)
	}
	return tw.Flush()
}
