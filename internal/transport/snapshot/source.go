// Package snapshot reads pre-normalised tracker exports from disk.
//
// Layout: <dir>/<organization>/<project>/pull_requests.yaml and work_items.yaml,
// each a YAML list of records. A missing file is an empty list.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
)

const (
	pullRequestsFile = "pull_requests.yaml"
	workItemsFile    = "work_items.yaml"
)

// Source is an indexer.DocumentSource backed by a snapshot directory.
type Source struct {
	dir string
}

// New creates a snapshot source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Ping checks that the snapshot directory is readable.
func (s *Source) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, s.dir)
	}
	return nil
}

// FetchPullRequests reads every pull request of org/project.
func (s *Source) FetchPullRequests(ctx context.Context, org, project string) ([]source.PullRequest, error) {
	var prs []source.PullRequest
	if err := s.read(ctx, org, project, pullRequestsFile, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// FetchWorkItems reads the work items of org/project updated at or after since (all when nil).
func (s *Source) FetchWorkItems(
	ctx context.Context, org, project string, since *time.Time,
) ([]source.WorkItem, error) {
	var items []source.WorkItem
	if err := s.read(ctx, org, project, workItemsFile, &items); err != nil {
		return nil, err
	}
	if since == nil {
		return items, nil
	}

	kept := items[:0]
	for _, w := range items {
		if !w.UpdatedAt.Before(*since) {
			kept = append(kept, w)
		}
	}
	return kept, nil
}

func (s *Source) read(ctx context.Context, org, project, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // cancellation
	}

	dir, err := s.projectDir(org, project)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrSourceUnavailable, name, err)
	}

	if err = yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s/%s/%s: %w", domain.ErrSourceUnavailable, org, project, name, err)
	}
	return nil
}

// projectDir rejects names that would escape the snapshot directory.
func (s *Source) projectDir(org, project string) (string, error) {
	for _, part := range []string{org, project} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: invalid path component %q", domain.ErrInvalidQuery, part)
		}
	}
	dir := filepath.Join(s.dir, org, project)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: project %s/%s: %w", domain.ErrSourceUnavailable, org, project, err)
	}
	return dir, nil
}
