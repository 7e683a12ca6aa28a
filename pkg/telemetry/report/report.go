package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/chproxy/pkg/state"
)

// StatsSource is the part of state.State the reporter reads.
type StatsSource interface {
	Stats(ctx context.Context) (state.Stats, error)
}

// Gauges receives the values of each report. *metrics.Collector satisfies it.
type Gauges interface {
	SetTranscriptRecords(n int)
	SetReplayMode(replay bool)
}

// Scheduler logs a transcript summary on a cron schedule.
type Scheduler struct {
	source   StatsSource
	gauges   Gauges
	schedule string
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a Scheduler. An empty schedule disables reporting;
// gauges may be nil.
func NewScheduler(source StatsSource, gauges Gauges, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:   source,
		gauges:   gauges,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "report"),
	}
}

// Start schedules the report. Schedules use standard cron syntax or the
// descriptors cron understands:
//   - "@every 15m"   - Every 15 minutes
//   - "0 * * * *"    - Hourly
//   - "@daily"       - Once a day at midnight
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("report schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Report(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("report scheduler started", "schedule", s.schedule)
	return nil
}

// Run starts the scheduler, blocks until ctx is done and stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Report logs one summary line and refreshes the gauges.
func (s *Scheduler) Report(ctx context.Context) {
	stats, err := s.source.Stats(ctx)
	if err != nil {
		s.logger.Error("transcript report failed", "error", err)
		return
	}

	if s.gauges != nil {
		s.gauges.SetTranscriptRecords(stats.Records)
		s.gauges.SetReplayMode(stats.Mode == state.ModeReplay)
	}

	s.logger.Info("transcript report",
		"mode", stats.Mode.String(),
		"records", stats.Records,
		"appends", stats.Appends,
		"replays", stats.Replays,
	)
}

// Stop stops the scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("report scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled report time, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
