package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

// Scheduler runs the pipeline on a fixed interval and serializes passes: at
// most one pass runs at any time, across both scheduled ticks and manual
// triggers.
type Scheduler struct {
	pipeline *Pipeline
	cfg      config.IndexerConfig
	cron     *cron.Cron
	running  atomic.Bool
	logger   interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

func NewScheduler(pipeline *Pipeline, cfg config.IndexerConfig) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		cfg:      cfg,
		logger:   log.WithModule("scheduler"),
	}
}

// Start registers the interval job and kicks off an immediate first pass.
// Disabled by configuration it does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("indexer disabled by configuration")
		return nil
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrConfiguration, spec, err)
	}
	s.cron.Start()
	s.logger.Info("indexer scheduled", "interval", s.cfg.Interval, "site", s.cfg.SiteURL)

	go s.tick(ctx)
	return nil
}

// tick runs one scheduled pass, skipping if another pass is still going.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("indexing already running, skipping scheduled pass")
		return
	}
	defer s.running.Store(false)

	result, err := s.pipeline.Run(ctx, Options{SiteURL: s.cfg.SiteURL, DaysBack: s.cfg.DaysBack})
	if err != nil {
		s.logger.Error("scheduled pass failed", "error", err)
		return
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("scheduled pass completed with errors", "errors", len(result.Errors))
	}
}

// Trigger runs a manual pass with the given options. A pass already in
// flight yields ErrIndexerBusy rather than queuing.
func (s *Scheduler) Trigger(ctx context.Context, opts Options) (domain.IndexerResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.IndexerResult{}, domain.ErrIndexerBusy
	}
	defer s.running.Store(false)

	return s.pipeline.Run(ctx, opts)
}

// Running reports whether a pass is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop halts the schedule and waits briefly for a running job to notice.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("timed out waiting for scheduled jobs to stop")
	}
}
