package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/micuatri/calendarlink/internal/controllers"
	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <username>",
		Short: "Export calendar items from a file into the user's Google Calendar",
		Long: `Export calendar items into the Google Calendar linked to <username>.

The batch file is YAML or JSON with an "items" list, or a bare list of items.
Items are matched by external key, so running the same file twice updates
the events created by the first run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}

	cmd.Flags().StringP("file", "f", "", "Batch file with the items to export (YAML or JSON)")
	cmd.Flags().String("from", "", "Skip items that end before this timestamp")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runExport(cmd *cobra.Command, username string) error {
	path, _ := cmd.Flags().GetString("file")
	from, _ := cmd.Flags().GetString("from")

	request, err := loadExportRequest(path)
	if err != nil {
		return err
	}

	if from != "" {
		request.From = from
	}

	items, err := request.ToDomain()
	if err != nil {
		return err
	}

	ctx := context.Background()

	container, err := newContainer(ctx, cmd)
	if err != nil {
		return err
	}
	defer container.Close(ctx)

	log.Info().
		Str("username", username).
		Int("items", len(items)).
		Msg("Exporting calendar items")

	summary, err := container.ExportManager().ExportEvents(ctx, username, items)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)

	return nil
}

func loadExportRequest(path string) (controllers.ExportRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return controllers.ExportRequest{}, fmt.Errorf("failed to read batch file: %w", err)
	}

	return parseExportRequest(raw)
}

// parseExportRequest accepts a document with an items key or a bare list.
// JSON input parses as YAML.
func parseExportRequest(raw []byte) (controllers.ExportRequest, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return controllers.ExportRequest{}, fmt.Errorf("failed to parse batch file: %w", err)
	}

	if len(node.Content) == 0 {
		return controllers.ExportRequest{Items: []controllers.CalendarItemDto{}}, nil
	}

	var request controllers.ExportRequest

	if node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&request.Items); err != nil {
			return controllers.ExportRequest{}, fmt.Errorf("failed to decode batch items: %w", err)
		}

		return request, nil
	}

	if err := node.Content[0].Decode(&request); err != nil {
		return controllers.ExportRequest{}, fmt.Errorf("failed to decode batch file: %w", err)
	}

	return request, nil
}

func printSummary(out io.Writer, summary domain.ExportSummary) {
	fmt.Fprintf(out, "Created: %d\n", summary.Created)
	fmt.Fprintf(out, "Updated: %d\n", summary.Updated)
	fmt.Fprintf(out, "Failed:  %d\n", summary.Failed)

	for _, message := range summary.Errors {
		fmt.Fprintf(out, "   %s\n", message)
	}
}
