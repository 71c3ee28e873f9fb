package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ledger/cmd/app/commands"
	"github.com/allisson/ledger/internal/app"
	"github.com/allisson/ledger/internal/config"
	inboxDomain "github.com/allisson/ledger/internal/inbox/domain"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getOperationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "accrue-interest",
			Usage: "Run one interest accrual pass",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "account-id",
					Aliases: []string{"a"},
					Usage:   "Accrue a single account (UUID) instead of every interest bearing one",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				interestUseCase, err := container.InterestUseCase()
				if err != nil {
					return err
				}

				return commands.RunAccrueInterest(
					ctx,
					interestUseCase,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("account-id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-dead-letters",
			Usage: "List messages a consumer gave up on",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "handler",
					Aliases: []string{"H"},
					Value:   inboxDomain.HandlerAntifraud,
					Usage:   "Consumer handler name: 'antifraud' or 'audit'",
				},
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of dead letters to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of dead letters to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				deadLetterUseCase, err := container.DeadLetterUseCase()
				if err != nil {
					return err
				}

				return commands.RunListDeadLetters(
					ctx,
					deadLetterUseCase,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("handler"),
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "outbox-status",
			Usage: "Show outbox message counts and backlog health",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				statusUseCase, err := container.StatusUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxStatus(
					ctx,
					statusUseCase,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
