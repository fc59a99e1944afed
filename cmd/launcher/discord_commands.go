package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"launcher/internal/app"
)

func newDiscordCommand(ctx *commandContext) *cobra.Command {
	discordCmd := &cobra.Command{
		Use:   "discord",
		Short: "Inspect or remove the Discord link of a launcher account",
	}
	discordCmd.AddCommand(newDiscordStatusCommand(ctx))
	discordCmd.AddCommand(newDiscordUnlinkCommand(ctx))
	return discordCmd
}

func newDiscordStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <account-uuid>",
		Short: "Show whether the account has a linked Discord account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				linked, err := a.Commands.CheckDiscordLink(c, account)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discord linked: %s\n", yesNo(linked))
				return nil
			})
		},
	}
}

func newDiscordUnlinkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <account-uuid>",
		Short: "Remove the Discord link of the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				reply, err := a.Commands.UnlinkDiscord(c, account)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Discord unlinked for %s\n", account)
				if reply = strings.TrimSpace(reply); reply != "" {
					fmt.Fprintln(out, reply)
				}
				return nil
			})
		},
	}
}

func parseAccount(raw string) (uuid.UUID, error) {
	account, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account uuid %q: %w", raw, err)
	}
	return account, nil
}
