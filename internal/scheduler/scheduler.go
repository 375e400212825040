package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elonfeng/playaura/internal/metrics"
	"github.com/elonfeng/playaura/pkg/alert"
	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/rank"
	"github.com/elonfeng/playaura/pkg/source"
)

// Collector refreshes channel telemetry.
type Collector interface {
	Sync(ctx context.Context) (source.SyncReport, error)
}

// Ranker produces the ranked creator list.
type Ranker interface {
	Rank(ctx context.Context, q rank.Query) ([]creator.Creator, error)
}

// Broadcaster delivers notifications.
type Broadcaster interface {
	HasNotifiers() bool
	Broadcast(ctx context.Context, n *alert.Notification) error
}

// AlertLog remembers which creators were already announced on a given day.
type AlertLog interface {
	Alerted(ctx context.Context, creatorID string, day time.Time) (bool, error)
	MarkAlerted(ctx context.Context, creatorID string, day time.Time, hotScore int) error
}

// Options configures a Scheduler.
type Options struct {
	CollectInterval time.Duration
	RankInterval    time.Duration
	MinScore        int
	Now             func() time.Time
	Metrics         *metrics.Metrics
}

// Scheduler runs periodic collection, ranking and alerting.
type Scheduler struct {
	collector Collector
	ranker    Ranker
	alerts    Broadcaster
	alertLog  AlertLog
	opts      Options
	log       *zap.SugaredLogger
}

// New creates a scheduler. collector may be nil when no source is configured.
func New(collector Collector, ranker Ranker, alerts Broadcaster, alertLog AlertLog, opts Options, log *zap.SugaredLogger) *Scheduler {
	if opts.CollectInterval <= 0 {
		opts.CollectInterval = 6 * time.Hour
	}
	if opts.RankInterval <= 0 {
		opts.RankInterval = 30 * time.Minute
	}
	if opts.MinScore <= 0 {
		opts.MinScore = 90
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		collector: collector,
		ranker:    ranker,
		alerts:    alerts,
		alertLog:  alertLog,
		opts:      opts,
		log:       log,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.opts.CollectInterval)
	rankTicker := time.NewTicker(s.opts.RankInterval)
	defer collectTicker.Stop()
	defer rankTicker.Stop()

	s.Collect(ctx)
	s.RankAndAlert(ctx)

	s.log.Infow("scheduler running",
		"collect_every", s.opts.CollectInterval, "rank_every", s.opts.RankInterval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-collectTicker.C:
			s.Collect(ctx)
		case <-rankTicker.C:
			s.RankAndAlert(ctx)
		}
	}
}

// Collect runs one sync pass.
func (s *Scheduler) Collect(ctx context.Context) {
	if s.collector == nil {
		s.log.Debug("no collector configured, skipping collection")
		return
	}
	report, err := s.collector.Sync(ctx)
	if err != nil {
		s.log.Warnw("collection interrupted", "error", err)
		return
	}
	s.log.Infow("collection done", "channels", report.Total, "failed", report.Failed())
}

// RankAndAlert ranks creators and announces those at or above the alert
// threshold, at most once per creator per UTC day. It returns the number of
// creators announced.
func (s *Scheduler) RankAndAlert(ctx context.Context) int {
	ranked, err := s.ranker.Rank(ctx, rank.Query{})
	if err != nil {
		s.log.Warnw("ranking failed", "error", err)
		return 0
	}
	if s.alerts == nil || !s.alerts.HasNotifiers() {
		return 0
	}

	byID := make(map[string]creator.Creator, len(ranked))
	for _, c := range ranked {
		byID[c.ID] = c
	}

	now := s.opts.Now().UTC()
	day := now.Truncate(24 * time.Hour)
	sent := 0
	for _, c := range ranked {
		if c.HotScore < s.opts.MinScore {
			continue
		}
		done, err := s.alertLog.Alerted(ctx, c.ID, day)
		if err != nil {
			s.log.Warnw("check alert log", "creator", c.ID, "error", err)
			continue
		}
		if done {
			continue
		}

		var related []creator.Creator
		for _, id := range c.RelatedIDs {
			if r, ok := byID[id]; ok {
				related = append(related, r)
			}
		}

		if err := s.alerts.Broadcast(ctx, alert.NewCreatorNotification(c, related, now)); err != nil {
			s.opts.Metrics.AlertsSent.WithLabelValues("error").Inc()
			s.log.Warnw("alert failed", "creator", c.ID, "name", c.Name, "error", err)
			continue
		}
		s.opts.Metrics.AlertsSent.WithLabelValues("sent").Inc()

		if err := s.alertLog.MarkAlerted(ctx, c.ID, day, c.HotScore); err != nil {
			s.log.Warnw("mark alerted", "creator", c.ID, "error", err)
		}
		s.log.Infow("alerted", "creator", c.ID, "name", c.Name, "hot_score", c.HotScore)
		sent++
	}
	return sent
}
