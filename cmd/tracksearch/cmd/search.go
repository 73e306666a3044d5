package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tracksearch"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	format  string // "text", "json"
	explain bool   // print the parsed filters before the results
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed PRs and work items",
		Long: `Search indexed PRs and work items with a natural-language query.

Filters such as priority, item type, status, source type, draft state,
project and relative dates are extracted from the query; the remaining
text is searched lexically and semantically.

Examples:
  tracksearch search "priority 1 bugs in Lerum"
  tracksearch search "draft PRs about caching" --limit 5
  tracksearch search "login timeout last 2 weeks" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

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

			results, pq, err := client.SearchParsed(cmd.Context(), query, opts.limit)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by the client
			}

			var parsed *tracksearch.ParsedQuery
			if opts.explain || opts.format == formatJSON {
				parsed = &pq
			}
			return writeResults(cmd.OutOrStdout(), query, parsed, results, opts.format)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.default_limit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the filters extracted from the query")
	return cmd
}

func writeResults(w io.Writer, query string, parsed *tracksearch.ParsedQuery, results []tracksearch.Result, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err := enc.Encode(struct {
			Query   string                   `json:"query"`
			Parsed  *tracksearch.ParsedQuery `json:"parsed,omitempty"`
			Results []tracksearch.Result     `json:"results"`
			Count   int                      `json:"count"`
		}{query, parsed, results, len(results)})
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		return nil
	}

	if parsed != nil {
		filters, err := json.Marshal(parsed.Filters)
		if err != nil {
			return fmt.Errorf("encode filters: %w", err)
		}
		fmt.Fprintf(w, "filters: %s\ntext:    %q\n\n", filters, parsed.SearchText)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. [%s] %s (%s, %s) score=%.4f\n", i+1, r.Key(), r.Title, r.Project, r.Status, r.Score)
		if r.URL != "" {
			fmt.Fprintf(w, "    %s\n", r.URL)
		}
	}
	return nil
}
