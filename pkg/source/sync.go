package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/elonfeng/playaura/internal/metrics"
)

// Sync outcome statuses.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
	StatusDBError = "db_error"
)

// ReportEntry is the outcome of one region/category pass.
type ReportEntry struct {
	Region   string `json:"region"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Count    int    `json:"count"`
}

// SyncReport summarizes a full sync.
type SyncReport struct {
	Total      int           `json:"total"`
	Entries    []ReportEntry `json:"report"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Failed counts entries that did not succeed.
func (r SyncReport) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == StatusError || e.Status == StatusDBError {
			n++
		}
	}
	return n
}

// Sink persists collected channels and sync bookkeeping.
type Sink interface {
	SaveChannels(ctx context.Context, channels []Channel) error
	StartSyncRun(ctx context.Context, region, category string) (string, error)
	FinishSyncRun(ctx context.Context, id string, entry ReportEntry) error
}

// Syncer drives a Source over every region and category.
type Syncer struct {
	src        Source
	sink       Sink
	regions    []string
	categories []Category
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger
}

// NewSyncer creates a syncer. Empty regions or categories fall back to the
// package defaults.
func NewSyncer(src Source, sink Sink, regions []string, categories []Category, m *metrics.Metrics, log *zap.SugaredLogger) *Syncer {
	if len(regions) == 0 {
		regions = Regions
	}
	if len(categories) == 0 {
		categories = Categories
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Syncer{src: src, sink: sink, regions: regions, categories: categories, metrics: m, log: log}
}

// Sync collects every region and category. Failures of a single pass are
// recorded in the report and never abort the run; only ctx cancellation
// returns an error.
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	report := SyncReport{StartedAt: time.Now().UTC()}

	for _, region := range s.regions {
		s.log.Infow("syncing region", "region", region)
		for _, cat := range s.categories {
			if err := ctx.Err(); err != nil {
				report.FinishedAt = time.Now().UTC()
				return report, errors.Wrap(err, "sync interrupted")
			}

			entry := s.syncOne(ctx, region, cat)
			s.metrics.CollectorRequests.WithLabelValues(region, cat.ID, entry.Status).Inc()
			if entry.Status == StatusSuccess {
				report.Total += entry.Count
				s.metrics.ChannelsCollected.Add(float64(entry.Count))
			}
			report.Entries = append(report.Entries, entry)
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.log.Infow("sync finished", "channels", report.Total, "failed", report.Failed(),
		"took", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

func (s *Syncer) syncOne(ctx context.Context, region string, cat Category) ReportEntry {
	entry := ReportEntry{Region: region, Category: cat.ID}

	runID, err := s.sink.StartSyncRun(ctx, region, cat.ID)
	if err != nil {
		s.log.Warnw("record sync run", "region", region, "category", cat.ID, "error", err)
	}

	channels, err := s.src.Collect(ctx, region, cat)
	switch {
	case err != nil:
		entry.Status = StatusError
		entry.Message = err.Error()
		s.log.Warnw("collect failed", "source", s.src.Name(), "region", region, "category", cat.ID, "error", err)
	case len(channels) == 0:
		entry.Status = StatusEmpty
	default:
		if err := s.sink.SaveChannels(ctx, channels); err != nil {
			entry.Status = StatusDBError
			entry.Message = err.Error()
			s.log.Errorw("save channels", "region", region, "category", cat.ID, "error", err)
		} else {
			entry.Status = StatusSuccess
			entry.Count = len(channels)
		}
	}

	if runID != "" {
		if err := s.sink.FinishSyncRun(ctx, runID, entry); err != nil {
			s.log.Warnw("finish sync run", "id", runID, "error", err)
		}
	}
	return entry
}
