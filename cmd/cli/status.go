package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <username>",
		Short: "Show whether a user has a linked Google account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0])
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command, username string) error {
	ctx := context.Background()

	container, err := newContainer(ctx, cmd)
	if err != nil {
		return err
	}
	defer container.Close(ctx)

	status, err := container.LinkManager().Status(ctx, username)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if status.IsConnected {
		fmt.Fprintf(out, "✅ %s is connected to Google Calendar\n", username)
		if status.Email != "" {
			fmt.Fprintf(out, "   Google account: %s\n", status.Email)
		}
	} else {
		fmt.Fprintf(out, "❌ %s has no linked Google account\n", username)
	}

	return nil
}
