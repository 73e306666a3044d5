package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Project names one organization/project pair.
type Project struct {
	Organization string
	Project      string
}

// Syncer syncs one project.
type Syncer interface {
	SyncProject(ctx context.Context, org, project string) (Stats, error)
}

// Scheduler re-syncs a fixed set of projects on an interval.
type Scheduler struct {
	syncer   Syncer
	projects []Project
	interval time.Duration
	logger   *zap.Logger
}

// DefaultInterval is the time between sync rounds.
const DefaultInterval = 30 * time.Minute

// NewScheduler creates a scheduler. A non-positive interval means DefaultInterval.
func NewScheduler(syncer Syncer, projects []Project, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{syncer: syncer, projects: projects, interval: interval, logger: logger}
}

// Run syncs every project immediately and then once per interval until ctx is done.
// Projects are synced one after another; failures are logged and the round continues.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce syncs every project once.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, p := range s.projects {
		if ctx.Err() != nil {
			return
		}
		stats, err := s.syncer.SyncProject(ctx, p.Organization, p.Project)
		if err != nil {
			s.logger.Error("scheduled sync failed",
				zap.String("organization", p.Organization),
				zap.String("project", p.Project),
				zap.Error(err),
			)
			continue
		}
		if stats.Errors > 0 {
			s.logger.Warn("scheduled sync finished with errors",
				zap.String("organization", p.Organization),
				zap.String("project", p.Project),
				zap.Int("errors", stats.Errors),
			)
		}
	}
}
