package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many documents are indexed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client, err := openClient(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			st, err := client.Stats(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by the client
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(st); err != nil {
					return fmt.Errorf("encode stats: %w", err)
				}
				return nil
			}
			fmt.Fprintf(out, "Documents:  %d\nPRs:        %d\nWork items: %d\n", st.Total, st.PRs, st.WorkItems)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json")
	return cmd
}
