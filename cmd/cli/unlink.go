package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewUnlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <username>",
		Short: "Remove the linked Google account of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			container, err := newContainer(ctx, cmd)
			if err != nil {
				return err
			}
			defer container.Close(ctx)

			if err := container.LinkManager().Disconnect(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked Google account for %s\n", args[0])
			return nil
		},
	}
}
