package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tracksearch"
)

// syncOptions holds CLI flags for sync.
type syncOptions struct {
	all    bool
	format string // "text", "json"
}

// syncReport is one project's result in JSON output.
type syncReport struct {
	Organization string                `json:"organization"`
	Project      string                `json:"project"`
	Stats        tracksearch.SyncStats `json:"stats"`
	Error        string                `json:"error,omitempty"`
}

func newSyncCmd(g *globalOptions) *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync [organization project]",
		Short: "Index the PRs and work items of a project",
		Long: `Index every pull request and work item of a project, then remove
documents that were not refreshed within the stale threshold.

Examples:
  tracksearch sync acme Web
  tracksearch sync --all
  tracksearch sync acme Web --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := syncTargets(args, opts.all)
			if err != nil {
				return err
			}

			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if opts.all {
				projects = projectRefs(cfg.Sync.Projects)
				if len(projects) == 0 {
					return errors.New("sync --all: no sync.projects configured")
				}
			}

			client, err := openClient(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			reports := make([]syncReport, 0, len(projects))
			var failed bool
			for _, p := range projects {
				st, err := client.SyncProject(cmd.Context(), p.Organization, p.Project)
				r := syncReport{Organization: p.Organization, Project: p.Project, Stats: st}
				if err != nil {
					failed = true
					r.Error = err.Error()
					logger.Error("Project sync failed",
						zap.String("organization", p.Organization),
						zap.String("project", p.Project),
						zap.Error(err),
					)
				}
				reports = append(reports, r)
			}

			if err := writeSyncReports(cmd.OutOrStdout(), reports, opts.format); err != nil {
				return err
			}
			if failed {
				return errors.New("one or more projects failed to sync")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Sync every project listed in sync.projects")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func syncTargets(args []string, all bool) ([]tracksearch.Project, error) {
	switch {
	case all && len(args) > 0:
		return nil, errors.New("sync: --all takes no arguments")
	case all:
		return nil, nil
	case len(args) != 2:
		return nil, errors.New("sync: expected <organization> <project> or --all")
	default:
		return []tracksearch.Project{{Organization: args[0], Project: args[1]}}, nil
	}
}

func writeSyncReports(w io.Writer, reports []syncReport, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("encode reports: %w", err)
		}
		return nil
	}

	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "%s/%s: failed: %s\n", r.Organization, r.Project, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s/%s: %d PRs, %d work items indexed, %d deleted, %d errors in %s\n",
			r.Organization, r.Project,
			r.Stats.PRsIndexed, r.Stats.WorkItemsIndexed, r.Stats.DocumentsDeleted,
			r.Stats.Errors, r.Stats.Duration.Round(time.Millisecond),
		)
	}
	return nil
}
