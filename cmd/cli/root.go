package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/micuatri/calendarlink/internal/initialization"
	"github.com/micuatri/calendarlink/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calendarlink",
		Short: "Google Calendar account linking and export",
		Long: `calendarlink links local users to a Google account through OAuth 2.0 and exports
their schedule items into Google Calendar.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewKeygenCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewUnlinkCommand())

	return rootCmd
}

// newContainer loads configuration and connects the stores. Callers own the
// returned container and must Close it.
func newContainer(ctx context.Context, cmd *cobra.Command) (*initialization.Container, error) {
	configFile, _ := cmd.Flags().GetString("config")

	config, err := initialization.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	return initialization.NewContainer(ctx, config)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
